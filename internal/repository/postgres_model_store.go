package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/postgres"

	"github.com/jackc/pgx/v5"
)

// ModelSchema returns the DDL for the model cache tables.
func ModelSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS saved_models (
            model_hash  TEXT PRIMARY KEY,
            algorithm   TEXT NOT NULL,
            config_hash TEXT NOT NULL,
            data_hash   TEXT NOT NULL,
            artifact    JSONB NOT NULL,
            meta        JSONB NOT NULL DEFAULT '{}',
            accuracy    DOUBLE PRECISION NOT NULL,
            mae         DOUBLE PRECISION NOT NULL,
            rmse        DOUBLE PRECISION NOT NULL,
            created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
            last_used   TIMESTAMPTZ NOT NULL DEFAULT now(),
            use_count   INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE INDEX IF NOT EXISTS idx_saved_models_last_used ON saved_models (last_used DESC)`,
		`CREATE TABLE IF NOT EXISTS model_accuracy_history (
            id          BIGSERIAL PRIMARY KEY,
            model_hash  TEXT NOT NULL,
            config_hash TEXT NOT NULL,
            algorithm   TEXT NOT NULL,
            accuracy    DOUBLE PRECISION NOT NULL,
            mae         DOUBLE PRECISION NOT NULL,
            rmse        DOUBLE PRECISION NOT NULL,
            recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_accuracy_history_config ON model_accuracy_history (config_hash, recorded_at DESC)`,
	}
}

const savedModelColumns = `model_hash, algorithm, config_hash, data_hash, artifact, meta, accuracy, mae, rmse, created_at, last_used, use_count`

// PostgresModelStore implements ModelStore on PostgreSQL.
type PostgresModelStore struct {
	pool postgres.Pool
	l    *applogger.Logger
	now  func() time.Time
}

// NewPostgresModelStore creates the model cache repository.
func NewPostgresModelStore(pool postgres.Pool, l *applogger.Logger) *PostgresModelStore {
	return &PostgresModelStore{pool: pool, l: l, now: time.Now}
}

var _ domrepo.ModelStore = (*PostgresModelStore)(nil)

// FindCachedModel returns the hash of a stored model for exactly this
// algorithm, config and training data, or "" when none exists.
func (s *PostgresModelStore) FindCachedModel(ctx context.Context, algorithm string, cfg models.ForecastConfig, data []float64) (string, error) {
	hash := models.ModelHash(algorithm, models.GenerateConfigHash(cfg), models.DataHash(data))
	var found string
	err := s.pool.QueryRow(ctx, `SELECT model_hash FROM saved_models WHERE model_hash = $1`, hash).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find model: %w", err)
	}
	return found, nil
}

// LoadModel returns the model and records the use. A missing hash yields nil.
func (s *PostgresModelStore) LoadModel(ctx context.Context, hash string) (*models.SavedModel, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE saved_models SET last_used = $2, use_count = use_count + 1
         WHERE model_hash = $1 RETURNING `+savedModelColumns,
		hash, s.now().UTC())
	sm, err := scanSavedModel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return sm, nil
}

func scanSavedModel(row pgx.Row) (*models.SavedModel, error) {
	var (
		sm             models.SavedModel
		artifact, meta []byte
	)
	if err := row.Scan(&sm.ModelHash, &sm.Algorithm, &sm.ConfigHash, &sm.DataHash, &artifact, &meta,
		&sm.Accuracy, &sm.MAE, &sm.RMSE, &sm.CreatedAt, &sm.LastUsed, &sm.UseCount); err != nil {
		return nil, err
	}
	sm.Artifact = &models.ModelArtifact{}
	if err := json.Unmarshal(artifact, sm.Artifact); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &sm.Meta); err != nil {
			return nil, fmt.Errorf("decode meta: %w", err)
		}
	}
	return &sm, nil
}

// SaveModel upserts the model and appends an accuracy history row.
func (s *PostgresModelStore) SaveModel(ctx context.Context, artifact *models.ModelArtifact, algorithm string, cfg models.ForecastConfig,
	data []float64, m models.Metrics, meta models.ModelMeta) error {
	configHash := models.GenerateConfigHash(cfg)
	hash := models.ModelHash(algorithm, configHash, models.DataHash(data))
	ab, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if meta == nil {
		meta = models.ModelMeta{}
	}
	mb, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	now := s.now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO saved_models
        (model_hash, algorithm, config_hash, data_hash, artifact, meta, accuracy, mae, rmse, created_at, last_used, use_count)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, 1)
        ON CONFLICT (model_hash) DO UPDATE SET
            artifact = EXCLUDED.artifact, meta = EXCLUDED.meta,
            accuracy = EXCLUDED.accuracy, mae = EXCLUDED.mae, rmse = EXCLUDED.rmse,
            last_used = EXCLUDED.last_used`,
		hash, algorithm, configHash, models.DataHash(data), ab, mb, m.Accuracy, m.MAE, m.RMSE, now); err != nil {
		return fmt.Errorf("upsert model: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO model_accuracy_history
        (model_hash, config_hash, algorithm, accuracy, mae, rmse, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		hash, configHash, algorithm, m.Accuracy, m.MAE, m.RMSE, now); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.l.Debug("model saved", applogger.String("model_hash", hash), applogger.String("algorithm", algorithm))
	return nil
}

// CleanupOldModels deletes models created before now-maxAge, then every model
// outside the maxCount most recently used. It returns the number removed.
func (s *PostgresModelStore) CleanupOldModels(ctx context.Context, maxAge time.Duration, maxCount int) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	aged, err := tx.Exec(ctx, `DELETE FROM saved_models WHERE created_at < $1`, s.now().UTC().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("delete aged models: %w", err)
	}
	excess, err := tx.Exec(ctx, `DELETE FROM saved_models WHERE model_hash IN (
        SELECT model_hash FROM saved_models ORDER BY last_used DESC OFFSET $1)`, maxCount)
	if err != nil {
		return 0, fmt.Errorf("delete excess models: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	n := aged.RowsAffected() + excess.RowsAffected()
	s.l.Info("model cache cleanup",
		applogger.Int64("aged", aged.RowsAffected()),
		applogger.Int64("excess", excess.RowsAffected()),
	)
	return n, nil
}

// ClearAll deletes every model and all accuracy history.
func (s *PostgresModelStore) ClearAll(ctx context.Context) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM saved_models`)
	if err != nil {
		return 0, fmt.Errorf("delete models: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM model_accuracy_history`); err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresModelStore) ListModels(ctx context.Context, limit int) ([]models.CacheInfo, error) {
	rows, err := s.pool.Query(ctx, `SELECT model_hash, algorithm, accuracy, created_at, last_used, use_count
        FROM saved_models ORDER BY last_used DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	out := []models.CacheInfo{}
	for rows.Next() {
		var (
			ci           models.CacheInfo
			created, use time.Time
		)
		if err := rows.Scan(&ci.ModelHash, &ci.Algorithm, &ci.Accuracy, &created, &use, &ci.UseCount); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		ci.CreatedAt = created.Format(time.RFC3339)
		ci.LastUsed = use.Format(time.RFC3339)
		out = append(out, ci)
	}
	return out, rows.Err()
}

func (s *PostgresModelStore) AccuracyHistory(ctx context.Context, configHash string, daysBack int) ([]models.AccuracyRecord, error) {
	since := s.now().UTC().AddDate(0, 0, -daysBack)
	rows, err := s.pool.Query(ctx, `SELECT model_hash, config_hash, algorithm, accuracy, mae, rmse, recorded_at
        FROM model_accuracy_history WHERE config_hash = $1 AND recorded_at >= $2
        ORDER BY recorded_at DESC`, configHash, since)
	if err != nil {
		return nil, fmt.Errorf("accuracy history: %w", err)
	}
	defer rows.Close()

	out := []models.AccuracyRecord{}
	for rows.Next() {
		var r models.AccuracyRecord
		if err := rows.Scan(&r.ModelHash, &r.ConfigHash, &r.Algorithm, &r.Accuracy, &r.MAE, &r.RMSE, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
