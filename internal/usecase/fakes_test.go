package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/util"
)

type savedCall struct {
	algorithm string
	artifact  *models.ModelArtifact
	metrics   models.Metrics
	meta      models.ModelMeta
}

type fakeCache struct {
	mu      sync.Mutex
	hit     *models.SavedModel
	findErr error
	saveErr error
	panicky bool
	saved   []savedCall
	lookups int
}

func (f *fakeCache) FindCachedModel(_ context.Context, algorithm string, _ models.ForecastConfig, _ []float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.panicky {
		panic("cache exploded")
	}
	if f.findErr != nil {
		return "", f.findErr
	}
	if f.hit != nil && f.hit.Algorithm == algorithm {
		return f.hit.ModelHash, nil
	}
	return "", nil
}

func (f *fakeCache) LoadModel(_ context.Context, hash string) (*models.SavedModel, error) {
	if f.hit != nil && f.hit.ModelHash == hash {
		return f.hit, nil
	}
	return nil, nil
}

func (f *fakeCache) SaveModel(_ context.Context, artifact *models.ModelArtifact, algorithm string, _ models.ForecastConfig, _ []float64, m models.Metrics, meta models.ModelMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, savedCall{algorithm: algorithm, artifact: artifact, metrics: m, meta: meta})
	return f.saveErr
}

// memRecords filters an in-memory record set the way the stores do.
type memRecords struct {
	mu      sync.Mutex
	records []models.RawRecord
	err     error
	queries []models.RecordFilter
}

func in(vals []string, v string) bool {
	if len(vals) == 0 {
		return true
	}
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

func (m *memRecords) Query(_ context.Context, f models.RecordFilter) ([]models.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, f)
	if m.err != nil {
		return nil, m.err
	}
	var out []models.RawRecord
	for _, r := range m.records {
		if in(f.Products, r.Product) && in(f.Customers, r.Customer) && in(f.Locations, r.Location) {
			out = append(out, r)
		}
	}
	return out, nil
}

type memFactors struct {
	rows  []models.ExternalFactor
	err   error
	calls int
	from  time.Time
	to    time.Time
}

func (m *memFactors) Factors(_ context.Context, _ []string, from, to time.Time) ([]models.ExternalFactor, error) {
	m.calls++
	m.from, m.to = from, to
	return m.rows, m.err
}

type memPublisher struct {
	mu     sync.Mutex
	events []*models.ResultEvent
	err    error
}

func (p *memPublisher) Publish(_ context.Context, ev *models.ResultEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *memPublisher) Close() error { return nil }

var errBoom = errors.New("boom")

func monthStart(i int) time.Time {
	return util.AddMonths(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), i)
}

func series(y ...float64) models.TimeSeries {
	s := models.TimeSeries{Interval: models.IntervalMonth}
	for i, v := range y {
		d := monthStart(i)
		s.Points = append(s.Points, models.SeriesPoint{PeriodStart: d, Quantity: v, Label: util.PeriodLabel(d, "month")})
	}
	return s
}

// monthlyRecords emits one record per month with quantity base + step*i.
func monthlyRecords(p, c, l string, n int, base, step float64) []models.RawRecord {
	out := make([]models.RawRecord, n)
	for i := range out {
		out[i] = models.RawRecord{Date: monthStart(i).AddDate(0, 0, 9), Quantity: base + step*float64(i), Product: p, Customer: c, Location: l}
	}
	return out
}
