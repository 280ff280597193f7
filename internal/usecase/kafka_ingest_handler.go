package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	pkgkafka "DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
)

// RecordIngester validates and queues one record.
type RecordIngester interface {
	Process(ctx context.Context, msg models.IngestRecord) error
}

// FactorWriter stores factor rows.
type FactorWriter interface {
	ProcessFactors(ctx context.Context, factors []*models.ExternalFactor) error
}

var errNoValidRows = errors.New("message carries no valid rows")

// decodeRows accepts a single JSON object or an array of them.
func decodeRows[T any](b []byte) ([]T, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var rows []T
		if err := json.Unmarshal(b, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var row T
	if err := json.Unmarshal(b, &row); err != nil {
		return nil, err
	}
	return []T{row}, nil
}

// KafkaRecordsHandler feeds record messages into the ingest pipeline.
// Invalid rows are skipped. A message with no valid row fails.
type KafkaRecordsHandler struct {
	topic   string
	ingest  RecordIngester
	metrics drepo.Metrics
	log     *applogger.Logger
}

func NewKafkaRecordsHandler(topic string, ingest RecordIngester, metrics drepo.Metrics, log *applogger.Logger) *KafkaRecordsHandler {
	return &KafkaRecordsHandler{topic: topic, ingest: ingest, metrics: metrics, log: log}
}

func (h *KafkaRecordsHandler) Topic() string { return h.topic }

func (h *KafkaRecordsHandler) Handle(ctx context.Context, b []byte) error {
	rows, err := decodeRows[models.IngestRecord](b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode records: %w", err)
	}
	accepted := 0
	var downstream error
	for _, r := range rows {
		err := h.ingest.Process(ctx, r)
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, models.ErrInvalidRecord):
			h.log.Debug("skipping invalid record", applogger.String("trace_id", pkgkafka.TraceID(ctx)), applogger.Error(err))
		default:
			// accepted into the retry buffer
			accepted++
			downstream = err
		}
	}
	if downstream != nil {
		h.log.Warn("record batch buffered after store failure", applogger.Error(downstream))
	}
	if accepted == 0 {
		return errNoValidRows
	}
	return nil
}

// KafkaFactorsHandler stores external factor messages directly.
type KafkaFactorsHandler struct {
	topic   string
	writer  FactorWriter
	metrics drepo.Metrics
	log     *applogger.Logger
}

func NewKafkaFactorsHandler(topic string, writer FactorWriter, metrics drepo.Metrics, log *applogger.Logger) *KafkaFactorsHandler {
	return &KafkaFactorsHandler{topic: topic, writer: writer, metrics: metrics, log: log}
}

func (h *KafkaFactorsHandler) Topic() string { return h.topic }

func (h *KafkaFactorsHandler) Handle(ctx context.Context, b []byte) error {
	rows, err := decodeRows[models.IngestFactor](b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode factors: %w", err)
	}
	factors := make([]*models.ExternalFactor, 0, len(rows))
	for _, r := range rows {
		f, err := r.ToExternalFactor()
		if err != nil {
			h.metrics.RecordError("factor_validate")
			continue
		}
		factors = append(factors, f)
	}
	if len(factors) == 0 {
		return errNoValidRows
	}
	// store errors are returned so the consumer retries
	return h.writer.ProcessFactors(ctx, factors)
}

var (
	_ pkgkafka.MessageHandler = (*KafkaRecordsHandler)(nil)
	_ pkgkafka.MessageHandler = (*KafkaFactorsHandler)(nil)
)
