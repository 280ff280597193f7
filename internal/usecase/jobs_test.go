package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/pkg/cache"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubForecaster struct {
	out models.ForecastOutcome
	err error
	got models.ForecastConfig
}

func (s *stubForecaster) Forecast(_ context.Context, cfg models.ForecastConfig) (models.ForecastOutcome, error) {
	s.got = cfg
	return s.out, s.err
}

type recordingNotifier struct {
	events []models.JobCompletion
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev models.JobCompletion) error {
	n.events = append(n.events, ev)
	return n.err
}

type cleanupStore struct {
	drepo.ModelStore
	maxAge time.Duration
	keep   int
	n      int64
	err    error
}

func (c *cleanupStore) CleanupOldModels(_ context.Context, maxAge time.Duration, keep int) (int64, error) {
	c.maxAge, c.keep = maxAge, keep
	return c.n, c.err
}

func TestForecastJobReturnsPayloadAndNotifies(t *testing.T) {
	res := &models.ForecastResult{SelectedAlgorithm: "Linear Regression", Accuracy: 91.2}
	svc := &stubForecaster{out: models.ForecastOutcome{Single: res}}
	n := &recordingNotifier{err: errors.New("unreachable")}
	job := NewForecastJob(svc, n, applogger.Nop())

	body := json.RawMessage(`{"forecastBy":"product","selectedItem":"A","algorithm":"linear_regression","interval":"month"}`)
	ctx := queue.WithMessageID(context.Background(), "job-1")
	out, err := job.Handle(ctx, body)
	require.NoError(t, err)
	assert.Same(t, res, out)
	assert.Equal(t, "A", svc.got.SelectedItem)

	require.Len(t, n.events, 1)
	ev := n.events[0]
	assert.Equal(t, "job-1", ev.JobID)
	assert.Equal(t, "done", ev.Status)
	assert.Equal(t, models.GenerateConfigHash(svc.got), ev.ConfigHash)
	assert.Same(t, res, ev.Result)
}

func TestForecastJobDomainErrorIsNotRetried(t *testing.T) {
	svc := &stubForecaster{err: models.NewDomainError(models.ErrNoData, "No data found for the selected configuration")}
	n := &recordingNotifier{}
	job := NewForecastJob(svc, n, applogger.Nop())

	out, err := job.Handle(context.Background(), json.RawMessage(`{"algorithm":"linear_regression"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"error": "No data found for the selected configuration"}, out)
	require.Len(t, n.events, 1)
	assert.Equal(t, "failed", n.events[0].Status)
}

func TestForecastJobInfrastructureErrorIsReturned(t *testing.T) {
	svc := &stubForecaster{err: errors.New("clickhouse down")}
	job := NewForecastJob(svc, nil, applogger.Nop())

	_, err := job.Handle(context.Background(), json.RawMessage(`{}`))
	assert.EqualError(t, err, "clickhouse down")
}

func TestForecastJobRejectsBadPayload(t *testing.T) {
	job := NewForecastJob(&stubForecaster{}, nil, applogger.Nop())
	_, err := job.Handle(context.Background(), json.RawMessage(`[`))
	assert.Error(t, err)
}

func TestCleanupJobUsesConfiguredLimits(t *testing.T) {
	store := &cleanupStore{n: 4}
	job := NewCleanupJob(store, 7*24*time.Hour, 50, applogger.Nop())

	out, err := job.Handle(context.Background(), nil)
	require.NoError(t, err)
	res := out.(*models.CacheClearResult)
	assert.Equal(t, int64(4), res.ClearedCount)
	assert.Equal(t, "Cleared 4 old models", res.Message)
	assert.Equal(t, 7*24*time.Hour, store.maxAge)
	assert.Equal(t, 50, store.keep)
}

func TestCleanupJobOverrides(t *testing.T) {
	store := &cleanupStore{}
	job := NewCleanupJob(store, time.Hour, 10, applogger.Nop())

	_, err := job.Handle(context.Background(), json.RawMessage(`{"max_age_days":2,"max_count":5}`))
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, store.maxAge)
	assert.Equal(t, 5, store.keep)
}

func TestCleanupJobSkipsWhileLocked(t *testing.T) {
	ctx := context.Background()
	locks := cache.NewMemoryCache()
	defer locks.Close()
	store := &cleanupStore{n: 3}
	job := NewCleanupJob(store, time.Hour, 10, applogger.Nop(), WithCleanupLock(locks, time.Minute))

	ok, err := locks.TryLock(ctx, cleanupLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := job.Run(ctx, models.CleanupRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Cleanup already in progress", res.Message)
	assert.Zero(t, store.keep)

	require.NoError(t, locks.Unlock(ctx, cleanupLockKey))
	res, err = job.Run(ctx, models.CleanupRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.ClearedCount)
	assert.Equal(t, 10, store.keep)

	// released after the pass
	ok, _ = locks.Exists(ctx, cleanupLockKey)
	assert.False(t, ok)
}

func TestCleanupTaskPropagatesErrors(t *testing.T) {
	store := &cleanupStore{err: errors.New("pg down")}
	job := NewCleanupJob(store, time.Hour, 10, applogger.Nop())
	err := job.CleanupTask()(context.Background())
	assert.ErrorContains(t, err, "pg down")
}
