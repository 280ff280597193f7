package usecase

import (
	"context"
	"sync"
	"testing"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/service"
	applogger "DemandCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMulti(store *memRecords, opts ...MultiOption) *MultiForecaster {
	log := applogger.Nop()
	runner := NewForecastRunner(log)
	engine := NewEngine(runner, NewBestFitSelector(runner, log))
	return NewMultiForecaster(engine, NewSeriesLoader(store, nil, log), log, opts...)
}

func multiStore() *memRecords {
	var recs []models.RawRecord
	recs = append(recs, monthlyRecords("P1", "C1", "L1", 8, 10, 2)...)
	recs = append(recs, monthlyRecords("P1", "C2", "L1", 8, 20, 1)...)
	recs = append(recs, monthlyRecords("P2", "C1", "L2", 8, 5, 3)...)
	recs = append(recs, monthlyRecords("P2", "C2", "L2", 1, 7, 0)...) // a single month only
	return &memRecords{records: recs}
}

func multiCfg() models.ForecastConfig {
	return models.ForecastConfig{Algorithm: "drift_method", ForecastPeriod: 2, HistoricPeriod: 3}.WithDefaults()
}

type progressLog struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (p *progressLog) OnProgress(ev models.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

var _ service.ProgressObserver = (*progressLog)(nil)

func TestForecastTwoDimensions(t *testing.T) {
	store := multiStore()
	cfg := multiCfg()
	cfg.MultiSelect = true
	cfg.SelectedProducts = []string{"P1", "P2"}
	cfg.SelectedCustomers = []string{"C1", "C2"}
	obs := &progressLog{}

	res, err := newMulti(store).ForecastTwoDimensions(context.Background(), cfg, obs)
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalCombinations)
	assert.Equal(t, 3, res.Summary.SuccessfulCombinations)
	assert.Equal(t, 1, res.Summary.FailedCombinations)
	assert.Equal(t, res.TotalCombinations, res.Summary.SuccessfulCombinations+res.Summary.FailedCombinations)
	require.Len(t, res.Summary.FailedDetails, 1)
	assert.Equal(t, "product_customer: P2 + C2", res.Summary.FailedDetails[0].Combination)
	assert.Equal(t, "Insufficient data after aggregation", res.Summary.FailedDetails[0].Error)

	assert.Equal(t, models.Combination{"product": "P1", "customer": "C1"}, res.Results[0].Combination)
	assert.Equal(t, models.Combination{"product": "P2", "customer": "C1"}, res.Results[2].Combination)
	assert.Len(t, obs.events, 4)

	// loaded once with both dimensions constrained
	require.Len(t, store.queries, 1)
	assert.Equal(t, []string{"P1", "P2"}, store.queries[0].Products)
	assert.Equal(t, []string{"C1", "C2"}, store.queries[0].Customers)
	assert.Empty(t, store.queries[0].Locations)
}

func TestForecastThreeDimensionsCount(t *testing.T) {
	cfg := multiCfg()
	cfg.MultiSelect, cfg.AdvancedMode = true, true
	cfg.SelectedProducts = []string{"P1", "P2"}
	cfg.SelectedCustomers = []string{"C1", "C2"}
	cfg.SelectedLocations = []string{"L1", "L2"}

	res, err := newMulti(multiStore(), WithWorkers(4)).ForecastThreeDimensions(context.Background(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, 8, res.TotalCombinations)
	assert.Equal(t, 3, res.Summary.SuccessfulCombinations)
	assert.Equal(t, 5, res.Summary.FailedCombinations)
	// input order survives parallel execution
	assert.Equal(t, "P1", res.Results[0].Combination["product"])
	assert.Equal(t, "C1", res.Results[0].Combination["customer"])
	assert.Equal(t, "P2", res.Results[2].Combination["product"])

	byKey := map[string]string{}
	for _, f := range res.Summary.FailedDetails {
		byKey[f.Combination] = f.Error
	}
	assert.Equal(t, "No data found for combination: P1 + C1 + L2", byKey["P1 + C1 + L2"])
	assert.Equal(t, "Insufficient data", byKey["P2 + C2 + L2"])
}

func TestForecastThreeDimensionsRequiresAll(t *testing.T) {
	cfg := multiCfg()
	cfg.SelectedProducts = []string{"P1"}
	_, err := newMulti(multiStore()).ForecastThreeDimensions(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidSelection)
	assert.Equal(t, "Advanced mode requires selection of Products, Customers, and Locations", err.Error())
}

func TestForecastItems(t *testing.T) {
	cfg := multiCfg()
	cfg.ForecastBy = "customer"
	cfg.SelectedItems = []string{"C1", "C9", "C2"}

	res, err := newMulti(multiStore()).ForecastItems(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCombinations)
	require.Len(t, res.Results, 2)
	assert.Equal(t, models.Combination{"customer": "C1"}, res.Results[0].Combination)
	assert.Equal(t, models.Combination{"customer": "C2"}, res.Results[1].Combination)
	assert.Equal(t, "C9", res.Summary.FailedDetails[0].Combination)
}

func TestForecastItemsAllFail(t *testing.T) {
	cfg := multiCfg()
	cfg.SelectedItems = []string{"X1", "X2"}
	_, err := newMulti(multiStore()).ForecastItems(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoValidForecasts)
	assert.Equal(t, "No valid forecasts could be generated for any item", err.Error())
}

func TestSummarizeFirstExtremesWin(t *testing.T) {
	results := []models.ForecastResult{
		{Combination: models.Combination{"k": "a"}, Accuracy: 80},
		{Combination: models.Combination{"k": "b"}, Accuracy: 90},
		{Combination: models.Combination{"k": "c"}, Accuracy: 90},
		{Combination: models.Combination{"k": "d"}, Accuracy: 80},
		{Combination: models.Combination{"k": "e"}, Accuracy: 85.5},
	}
	s := summarize(results, nil)
	assert.Equal(t, "b", s.BestCombination.Combination["k"])
	assert.Equal(t, "a", s.WorstCombination.Combination["k"])
	assert.Equal(t, 85.1, s.AverageAccuracy)
	assert.NotNil(t, s.FailedDetails)
}

func TestMultiBestFitIncludesEnsemble(t *testing.T) {
	cfg := multiCfg()
	cfg.Algorithm = "best_fit"
	cfg.SelectedItems = []string{"P1", "P2"}

	res, err := newMulti(multiStore()).ForecastItems(context.Background(), cfg, nil)
	require.NoError(t, err)
	for _, r := range res.Results {
		require.Len(t, r.AllAlgorithms, 23)
		assert.Equal(t, EnsembleName, r.AllAlgorithms[22].Algorithm)
	}
}
