package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	applogger "DemandCast/pkg/logger"
)

// ClickHouseFactorStore implements FactorStore for ClickHouse.
type ClickHouseFactorStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseFactorStore(db *sql.DB, database string, l *applogger.Logger) *ClickHouseFactorStore {
	return &ClickHouseFactorStore{db: db, table: database + ".external_factors", l: l}
}

var _ domrepo.FactorStore = (*ClickHouseFactorStore)(nil)

func (s *ClickHouseFactorStore) StoreFactors(ctx context.Context, factors []*models.ExternalFactor) error {
	values := make([]string, 0, len(factors))
	args := make([]interface{}, 0, len(factors)*3)
	for _, f := range factors {
		if f == nil || f.FactorName == "" {
			continue
		}
		values = append(values, "(?, ?, ?)")
		args = append(args, f.Date, f.FactorName, f.FactorValue)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (date, factor_name, factor_value) VALUES %s", s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse store_factors error", applogger.Int("rows", len(values)), applogger.Error(err))
		return fmt.Errorf("store factors: %w", err)
	}
	return nil
}

// Factors returns observations of names dated in [from, to).
func (s *ClickHouseFactorStore) Factors(ctx context.Context, names []string, from, to time.Time) ([]models.ExternalFactor, error) {
	if len(names) == 0 {
		return nil, nil
	}
	w := &where{}
	w.in("factor_name", names)
	w.cmp("date", ">=", from)
	w.cmp("date", "<", to)
	q := fmt.Sprintf("SELECT date, factor_name, factor_value FROM %s%s ORDER BY date", s.table, w)
	rows, err := s.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		s.l.Error("clickhouse factors error", applogger.Strings("factors", names), applogger.Error(err))
		return nil, fmt.Errorf("query factors: %w", err)
	}
	defer rows.Close()

	var out []models.ExternalFactor
	for rows.Next() {
		var f models.ExternalFactor
		if err := rows.Scan(&f.Date, &f.FactorName, &f.FactorValue); err != nil {
			return nil, fmt.Errorf("scan factor: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *ClickHouseFactorStore) FactorNames(ctx context.Context) ([]string, error) {
	return scanStrings(ctx, s.db, fmt.Sprintf("SELECT DISTINCT factor_name FROM %s WHERE factor_name != '' ORDER BY factor_name", s.table))
}
