package usecase

import (
	"context"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	applogger "DemandCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc     *ForecastService
	store   *memRecords
	factors *memFactors
	pub     *memPublisher
}

func newServiceFixture(store *memRecords) serviceFixture {
	log := applogger.Nop()
	factors := &memFactors{}
	pub := &memPublisher{}
	runner := NewForecastRunner(log)
	engine := NewEngine(runner, NewBestFitSelector(runner, log))
	loader := NewSeriesLoader(store, factors, log)
	multi := NewMultiForecaster(engine, loader, log, WithWorkers(2))
	return serviceFixture{
		svc:     NewForecastService(engine, multi, loader, log, WithResultPublisher(pub)),
		store:   store,
		factors: factors,
		pub:     pub,
	}
}

func TestServiceSingleForecast(t *testing.T) {
	f := newServiceFixture(multiStore())
	cfg := models.ForecastConfig{Algorithm: "drift_method", SelectedItem: "P1", ForecastPeriod: 2}

	out, err := f.svc.Forecast(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, out.Single)
	assert.Nil(t, out.Multi)

	assert.Equal(t, "Drift Method", out.Single.SelectedAlgorithm)
	assert.Len(t, out.Single.ForecastData, 2)
	assert.Equal(t, models.GenerateConfigHash(cfg.WithDefaults()), out.Single.ConfigHash)
	assert.Equal(t, []string{"P1"}, f.store.queries[0].Products)

	require.Len(t, f.pub.events, 1)
	ev := f.pub.events[0]
	assert.Equal(t, out.Single.ConfigHash, ev.ConfigHash)
	assert.Equal(t, "Drift Method", ev.SelectedAlgorithm)
	assert.Equal(t, 1, ev.Combinations)
}

func TestServiceSingleNoData(t *testing.T) {
	f := newServiceFixture(multiStore())
	_, err := f.svc.Forecast(context.Background(), models.ForecastConfig{SelectedItem: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoData)
	assert.Equal(t, "No data found for the selected configuration", err.Error())
	assert.Empty(t, f.pub.events)
}

func TestServiceSingleInsufficientData(t *testing.T) {
	f := newServiceFixture(&memRecords{records: monthlyRecords("P1", "C1", "L1", 1, 5, 0)})
	_, err := f.svc.Forecast(context.Background(), models.ForecastConfig{SelectedItem: "P1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
	assert.Equal(t, "Insufficient data for forecasting", err.Error())
}

func TestServiceStoreFailure(t *testing.T) {
	f := newServiceFixture(&memRecords{err: errBoom})
	_, err := f.svc.Forecast(context.Background(), models.ForecastConfig{SelectedItem: "P1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}

func TestServiceRouting(t *testing.T) {
	tests := []struct {
		name    string
		cfg     models.ForecastConfig
		wantErr string
		total   int
	}{
		{
			name:    "unsupported algorithm",
			cfg:     models.ForecastConfig{Algorithm: "magic"},
			wantErr: "unsupported algorithm: magic",
		},
		{
			name:    "multi select with one dimension",
			cfg:     models.ForecastConfig{MultiSelect: true, SelectedProducts: []string{"P1"}},
			wantErr: "Multi-select mode requires at least 2 dimensions",
		},
		{
			name: "advanced mode missing locations",
			cfg: models.ForecastConfig{
				MultiSelect: true, AdvancedMode: true,
				SelectedProducts: []string{"P1"}, SelectedCustomers: []string{"C1"},
			},
			wantErr: "Advanced mode requires selection of Products, Customers, and Locations",
		},
		{
			name: "two dimensions",
			cfg: models.ForecastConfig{
				MultiSelect: true, SelectedProducts: []string{"P1", "P2"}, SelectedLocations: []string{"L1"},
			},
			total: 2,
		},
		{
			name: "three dimensions without advanced mode",
			cfg: models.ForecastConfig{
				MultiSelect: true, SelectedProducts: []string{"P1"},
				SelectedCustomers: []string{"C1", "C2"}, SelectedLocations: []string{"L1"},
			},
			total: 2,
		},
		{
			name:  "items",
			cfg:   models.ForecastConfig{SelectedItems: []string{"P1", "P2"}},
			total: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(multiStore())
			tt.cfg.Algorithm = firstNonEmpty(tt.cfg.Algorithm, "drift_method")
			out, err := f.svc.Forecast(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.Empty(t, f.store.queries)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, out.Multi)
			assert.Equal(t, tt.total, out.Multi.TotalCombinations)
			require.Len(t, f.pub.events, 1)
			assert.Equal(t, tt.total, f.pub.events[0].Combinations)
		})
	}
}

func TestServiceJoinsExternalFactors(t *testing.T) {
	f := newServiceFixture(multiStore())
	cfg := models.ForecastConfig{Algorithm: "linear_regression", SelectedItem: "P1", ExternalFactors: []string{"temp"}}

	_, err := f.svc.Forecast(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, f.factors.calls)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), f.factors.from)
	assert.Equal(t, time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), f.factors.to)
}

func TestServicePublishFailureIsIgnored(t *testing.T) {
	f := newServiceFixture(multiStore())
	f.pub.err = errBoom
	_, err := f.svc.Forecast(context.Background(), models.ForecastConfig{Algorithm: "drift_method", SelectedItem: "P1"})
	require.NoError(t, err)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
