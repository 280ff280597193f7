package usecase

import (
	"context"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	applogger "DemandCast/pkg/logger"
)

// RecordProcessor writes ingested records and factors to their stores.
type RecordProcessor struct {
	records drepo.RecordStore
	factors drepo.FactorStore
	metrics drepo.Metrics
	source  string
	log     *applogger.Logger
}

// NewRecordProcessor creates a processor. source labels the ingest metrics.
func NewRecordProcessor(records drepo.RecordStore, factors drepo.FactorStore, metrics drepo.Metrics, source string, log *applogger.Logger) *RecordProcessor {
	return &RecordProcessor{records: records, factors: factors, metrics: metrics, source: source, log: log}
}

// ProcessBatch stores records in one write.
func (p *RecordProcessor) ProcessBatch(ctx context.Context, records []*models.RawRecord) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()
	if err := p.records.StoreBatch(ctx, records); err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}
	p.metrics.RecordRecordsIngested(p.source, len(records))
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	p.log.Debug("records stored", applogger.Int("count", len(records)), applogger.String("source", p.source))
	return nil
}

// ProcessFactors stores external factor rows.
func (p *RecordProcessor) ProcessFactors(ctx context.Context, factors []*models.ExternalFactor) error {
	if len(factors) == 0 {
		return nil
	}
	if err := p.factors.StoreFactors(ctx, factors); err != nil {
		p.metrics.RecordError("process_factors")
		return fmt.Errorf("process factors: %w", err)
	}
	p.metrics.RecordRecordsIngested(p.source+"_factors", len(factors))
	return nil
}
