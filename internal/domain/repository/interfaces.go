package repository

import (
	"context"
	"time"

	"DemandCast/internal/domain/models"
)

// RecordStore gives access to transactional records.
type RecordStore interface {
	Init(ctx context.Context) error // ensure tables
	StoreBatch(ctx context.Context, records []*models.RawRecord) error
	Query(ctx context.Context, f models.RecordFilter) ([]models.RawRecord, error)
	Stats(ctx context.Context) (*models.DatabaseStats, error)
	Options(ctx context.Context, f models.RecordFilter) (*models.DimensionOptions, error)
	View(ctx context.Context, req models.DataViewRequest) (*models.DataViewResponse, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// FactorStore gives access to external factor observations.
type FactorStore interface {
	StoreFactors(ctx context.Context, factors []*models.ExternalFactor) error
	Factors(ctx context.Context, names []string, from, to time.Time) ([]models.ExternalFactor, error)
	FactorNames(ctx context.Context) ([]string, error)
}

// ModelStore is the content-hash model cache collaborator.
type ModelStore interface {
	FindCachedModel(ctx context.Context, algorithm string, cfg models.ForecastConfig, data []float64) (string, error)
	LoadModel(ctx context.Context, hash string) (*models.SavedModel, error)
	SaveModel(ctx context.Context, artifact *models.ModelArtifact, algorithm string, cfg models.ForecastConfig, data []float64, m models.Metrics, meta models.ModelMeta) error
	CleanupOldModels(ctx context.Context, maxAge time.Duration, maxCount int) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
	ListModels(ctx context.Context, limit int) ([]models.CacheInfo, error)
	AccuracyHistory(ctx context.Context, configHash string, daysBack int) ([]models.AccuracyRecord, error)
}

// ConfigurationStore persists named forecast configurations.
type ConfigurationStore interface {
	List(ctx context.Context) ([]models.SavedConfiguration, error)
	Get(ctx context.Context, id string) (*models.SavedConfiguration, error)
	Create(ctx context.Context, c *models.SavedConfiguration) error
	Update(ctx context.Context, c *models.SavedConfiguration) error
	Delete(ctx context.Context, id string) error
}

// ResultPublisher emits completed forecast summaries downstream.
type ResultPublisher interface {
	Publish(ctx context.Context, ev *models.ResultEvent) error
	Close() error
}

// Metrics records engine-level observations.
type Metrics interface {
	RecordRecordsIngested(source string, n int)
	RecordError(kind string)
	RecordAlgorithmRun(algorithm string, accuracy float64, seconds float64, degraded bool)
	RecordLatency(op string, seconds float64)
}
