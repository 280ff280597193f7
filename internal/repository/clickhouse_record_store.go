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

const insertChunk = 2000

// RecordSchema returns the DDL for the records and factors tables.
func RecordSchema(database string) []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS " + database,
		`CREATE TABLE IF NOT EXISTS ` + database + `.records (
            id UInt64 DEFAULT rand64(),
            date Date,
            quantity Float64,
            product String,
            customer String,
            location String,
            product_group String DEFAULT '',
            customer_group String DEFAULT '',
            location_region String DEFAULT '',
            uom String DEFAULT '',
            unit_price Nullable(Float64),
            created_at DateTime DEFAULT now()
        ) ENGINE = MergeTree ORDER BY (product, customer, location, date)`,
		`CREATE TABLE IF NOT EXISTS ` + database + `.external_factors (
            date Date,
            factor_name String,
            factor_value Float64
        ) ENGINE = ReplacingMergeTree ORDER BY (factor_name, date)`,
	}
}

// where accumulates AND-ed predicates with positional args.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) in(col string, vals []string) {
	if len(vals) == 0 {
		return
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ")
	w.conds = append(w.conds, fmt.Sprintf("%s IN (%s)", col, marks))
	for _, v := range vals {
		w.args = append(w.args, v)
	}
}

func (w *where) cmp(col, op string, v interface{}) {
	w.conds = append(w.conds, fmt.Sprintf("%s %s ?", col, op))
	w.args = append(w.args, v)
}

func (w *where) raw(cond string) { w.conds = append(w.conds, cond) }

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func recordWhere(f models.RecordFilter) *where {
	w := &where{}
	w.in("product", f.Products)
	w.in("customer", f.Customers)
	w.in("location", f.Locations)
	if f.From != nil {
		w.cmp("date", ">=", *f.From)
	}
	if f.To != nil {
		w.cmp("date", "<=", *f.To)
	}
	return w
}

// ClickHouseRecordStore implements RecordStore for ClickHouse.
type ClickHouseRecordStore struct {
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

// NewClickHouseRecordStore creates the records repository on database.
func NewClickHouseRecordStore(db *sql.DB, database string, l *applogger.Logger) *ClickHouseRecordStore {
	return &ClickHouseRecordStore{db: db, database: database, table: database + ".records", l: l}
}

var _ domrepo.RecordStore = (*ClickHouseRecordStore)(nil)

func (s *ClickHouseRecordStore) Init(ctx context.Context) error {
	for _, stmt := range RecordSchema(s.database) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseRecordStore) StoreBatch(ctx context.Context, records []*models.RawRecord) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()
	stored := 0
	for lo := 0; lo < len(records); lo += insertChunk {
		hi := lo + insertChunk
		if hi > len(records) {
			hi = len(records)
		}
		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*10)
		for _, r := range records[lo:hi] {
			if r == nil || r.Product == "" || r.Customer == "" || r.Location == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.Date, r.Quantity, r.Product, r.Customer, r.Location,
				r.ProductGroup, r.CustomerGroup, r.LocationRegion, r.UOM, r.UnitPrice,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(`INSERT INTO %s (date, quantity, product, customer, location, product_group, customer_group, location_region, uom, unit_price) VALUES %s`,
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_records error",
				applogger.String("table", s.table),
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
			return fmt.Errorf("store records: %w", err)
		}
		stored += len(values)
	}
	s.l.Debug("clickhouse store_records ok",
		applogger.Int("rows", stored),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *ClickHouseRecordStore) Query(ctx context.Context, f models.RecordFilter) ([]models.RawRecord, error) {
	start := time.Now()
	w := recordWhere(f)
	q := fmt.Sprintf("SELECT date, quantity, product, customer, location FROM %s%s ORDER BY date", s.table, w)
	rows, err := s.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		s.l.Error("clickhouse query_records error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []models.RawRecord
	for rows.Next() {
		var r models.RawRecord
		if err := rows.Scan(&r.Date, &r.Quantity, &r.Product, &r.Customer, &r.Location); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse query_records ok",
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *ClickHouseRecordStore) Stats(ctx context.Context) (*models.DatabaseStats, error) {
	q := fmt.Sprintf(`SELECT toInt64(count()), min(date), max(date),
        toInt64(uniqExact(product)), toInt64(uniqExact(customer)), toInt64(uniqExact(location))
        FROM %s`, s.table)
	var (
		st          models.DatabaseStats
		first, last time.Time
	)
	err := s.db.QueryRowContext(ctx, q).Scan(&st.TotalRecords, &first, &last, &st.UniqueProducts, &st.UniqueCustomers, &st.UniqueLocations)
	if err != nil {
		s.l.Error("clickhouse stats error", applogger.Error(err))
		return nil, fmt.Errorf("stats: %w", err)
	}
	st.DateRange = map[string]string{"start": "No data", "end": "No data"}
	if st.TotalRecords > 0 {
		st.DateRange["start"] = first.Format(models.DateLayout)
		st.DateRange["end"] = last.Format(models.DateLayout)
	}
	return &st, nil
}

// Options lists the sorted distinct non-empty dimension values among the
// records matching f.
func (s *ClickHouseRecordStore) Options(ctx context.Context, f models.RecordFilter) (*models.DimensionOptions, error) {
	var (
		out models.DimensionOptions
		err error
	)
	if out.Products, err = s.distinct(ctx, "product", f); err != nil {
		return nil, err
	}
	if out.Customers, err = s.distinct(ctx, "customer", f); err != nil {
		return nil, err
	}
	if out.Locations, err = s.distinct(ctx, "location", f); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ClickHouseRecordStore) distinct(ctx context.Context, col string, f models.RecordFilter) ([]string, error) {
	w := recordWhere(f)
	w.raw(col + " != ''")
	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s%s ORDER BY %s", col, s.table, w, col)
	return scanStrings(ctx, s.db, q, w.args...)
}

func (s *ClickHouseRecordStore) View(ctx context.Context, req models.DataViewRequest) (*models.DataViewResponse, error) {
	w := &where{}
	if req.Product != "" {
		w.cmp("product", "=", req.Product)
	}
	if req.Customer != "" {
		w.cmp("customer", "=", req.Customer)
	}
	if req.Location != "" {
		w.cmp("location", "=", req.Location)
	}
	if req.StartDate != "" {
		d, err := models.ParseDate(req.StartDate)
		if err != nil {
			return nil, err
		}
		w.cmp("date", ">=", d)
	}
	if req.EndDate != "" {
		d, err := models.ParseDate(req.EndDate)
		if err != nil {
			return nil, err
		}
		w.cmp("date", "<=", d)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT toInt64(count()) FROM %s%s", s.table, w), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count view: %w", err)
	}

	q := fmt.Sprintf(`SELECT id, product, quantity, product_group, location, location_region, customer, customer_group, uom, date, unit_price, created_at
        FROM %s%s ORDER BY date DESC LIMIT ? OFFSET ?`, s.table, w)
	args := append(append([]interface{}{}, w.args...), req.PageSize, (req.Page-1)*req.PageSize)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse view error", applogger.Error(err))
		return nil, fmt.Errorf("view records: %w", err)
	}
	defer rows.Close()

	resp := &models.DataViewResponse{
		Data:         []models.DataViewRow{},
		TotalRecords: total,
		Page:         req.Page,
		PageSize:     req.PageSize,
		TotalPages:   (total + int64(req.PageSize) - 1) / int64(req.PageSize),
	}
	for rows.Next() {
		var (
			r         models.DataViewRow
			date, cat time.Time
			price     sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Product, &r.Quantity, &r.ProductGroup, &r.Location, &r.LocationRegion,
			&r.Customer, &r.CustomerGroup, &r.UOM, &date, &price, &cat); err != nil {
			return nil, fmt.Errorf("scan view row: %w", err)
		}
		r.Date = date.Format(models.DateLayout)
		r.CreatedAt = cat.Format(time.RFC3339)
		if price.Valid {
			v := price.Float64
			r.UnitPrice = &v
		}
		resp.Data = append(resp.Data, r)
	}
	return resp, rows.Err()
}

func (s *ClickHouseRecordStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseRecordStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}

func scanStrings(ctx context.Context, db *sql.DB, q string, args ...interface{}) ([]string, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
