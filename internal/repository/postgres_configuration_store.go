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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// ConfigurationSchema returns the DDL for saved configurations.
func ConfigurationSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS forecast_configurations (
            id          UUID PRIMARY KEY,
            name        TEXT NOT NULL UNIQUE,
            description TEXT NOT NULL DEFAULT '',
            config      JSONB NOT NULL,
            created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	}
}

// PostgresConfigurationStore implements ConfigurationStore on PostgreSQL.
type PostgresConfigurationStore struct {
	pool  postgres.Pool
	l     *applogger.Logger
	now   func() time.Time
	newID func() string
}

func NewPostgresConfigurationStore(pool postgres.Pool, l *applogger.Logger) *PostgresConfigurationStore {
	return &PostgresConfigurationStore{pool: pool, l: l, now: time.Now, newID: uuid.NewString}
}

var _ domrepo.ConfigurationStore = (*PostgresConfigurationStore)(nil)

func (s *PostgresConfigurationStore) List(ctx context.Context) ([]models.SavedConfiguration, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, config, created_at, updated_at
        FROM forecast_configurations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	defer rows.Close()

	out := []models.SavedConfiguration{}
	for rows.Next() {
		c, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresConfigurationStore) Get(ctx context.Context, id string) (*models.SavedConfiguration, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, name, description, config, created_at, updated_at
        FROM forecast_configurations WHERE id = $1`, id)
	c, err := scanConfiguration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, configurationNotFound()
	}
	return c, err
}

// Create assigns a new id and timestamps, then inserts c.
func (s *PostgresConfigurationStore) Create(ctx context.Context, c *models.SavedConfiguration) error {
	body, err := json.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	c.ID = s.newID()
	c.CreatedAt = s.now().UTC()
	c.UpdatedAt = c.CreatedAt
	_, err = s.pool.Exec(ctx, `INSERT INTO forecast_configurations
        (id, name, description, config, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, c.Description, body, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return s.writeErr("create", c.Name, err)
	}
	s.l.Info("configuration created", applogger.String("id", c.ID), applogger.String("name", c.Name))
	return nil
}

// Update replaces name, description and config of c.ID.
func (s *PostgresConfigurationStore) Update(ctx context.Context, c *models.SavedConfiguration) error {
	body, err := json.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	c.UpdatedAt = s.now().UTC()
	err = s.pool.QueryRow(ctx, `UPDATE forecast_configurations
        SET name = $2, description = $3, config = $4, updated_at = $5
        WHERE id = $1 RETURNING created_at`,
		c.ID, c.Name, c.Description, body, c.UpdatedAt).Scan(&c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return configurationNotFound()
	}
	if err != nil {
		return s.writeErr("update", c.Name, err)
	}
	return nil
}

func (s *PostgresConfigurationStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM forecast_configurations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return configurationNotFound()
	}
	return nil
}

func (s *PostgresConfigurationStore) writeErr(op, name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return models.NewDomainError(models.ErrDuplicate, "Configuration name already exists")
	}
	s.l.Error("configuration write failed", applogger.String("op", op), applogger.String("name", name), applogger.Error(err))
	return fmt.Errorf("%s configuration: %w", op, err)
}

func configurationNotFound() error {
	return models.NewDomainError(models.ErrNotFound, "Configuration not found")
}

func scanConfiguration(row pgx.Row) (*models.SavedConfiguration, error) {
	var (
		c    models.SavedConfiguration
		body []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &body, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &c.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}
