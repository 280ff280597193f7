package usecase

import (
	"context"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	domsvc "DemandCast/internal/domain/service"
	"DemandCast/pkg/cache"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/queue"
)

// CompletionNotifier is told when a background job finishes.
type CompletionNotifier interface {
	Notify(ctx context.Context, ev models.JobCompletion) error
}

// ForecastJob runs queued forecast requests.
type ForecastJob struct {
	svc      domsvc.Forecaster
	notifier CompletionNotifier
	log      *applogger.Logger
	now      func() time.Time
}

// NewForecastJob creates the queue job. notifier may be nil.
func NewForecastJob(svc domsvc.Forecaster, notifier CompletionNotifier, log *applogger.Logger) *ForecastJob {
	return &ForecastJob{svc: svc, notifier: notifier, log: log, now: time.Now}
}

var _ queue.Job = (*ForecastJob)(nil)

func (j *ForecastJob) Name() string { return "forecast" }
func (j *ForecastJob) Type() string { return models.JobTypeForecast }

// Handle decodes a ForecastConfig, runs it and returns the result payload.
// Domain errors are reported to the notifier but not retried.
func (j *ForecastJob) Handle(ctx context.Context, payload interface{}) (interface{}, error) {
	id := queue.MessageID(ctx)
	cfg, err := queue.ParsePayload[models.ForecastConfig](payload)
	if err != nil {
		return nil, err
	}
	hash := models.GenerateConfigHash(*cfg)

	out, err := j.svc.Forecast(ctx, *cfg)
	ev := models.JobCompletion{
		JobID:      id,
		Type:       models.JobTypeForecast,
		ConfigHash: hash,
		FinishedAt: j.now().UTC(),
	}
	if err != nil {
		if !models.IsDomainError(err) {
			return nil, err
		}
		ev.Status = string(queue.StateFailed)
		ev.Error = err.Error()
		j.notify(ctx, ev)
		return map[string]string{"error": err.Error()}, nil
	}

	ev.Status = string(queue.StateDone)
	ev.Result = out.Payload()
	j.notify(ctx, ev)
	j.log.Info("async forecast finished", applogger.String("job_id", id), applogger.String("config_hash", hash))
	return out.Payload(), nil
}

func (j *ForecastJob) notify(ctx context.Context, ev models.JobCompletion) {
	if j.notifier == nil {
		return
	}
	if err := j.notifier.Notify(ctx, ev); err != nil {
		j.log.Warn("job completion not delivered", applogger.String("job_id", ev.JobID), applogger.Error(err))
	}
}

const cleanupLockKey = "lock:model_cleanup"

// CleanupJob prunes the model cache.
type CleanupJob struct {
	store  drepo.ModelStore
	maxAge time.Duration
	keep   int
	log    *applogger.Logger
	lock   cache.Locker
	lease  time.Duration
}

type CleanupOption func(*CleanupJob)

// WithCleanupLock makes Run skip while another process holds the lease.
func WithCleanupLock(l cache.Locker, lease time.Duration) CleanupOption {
	return func(j *CleanupJob) {
		j.lock = l
		if lease > 0 {
			j.lease = lease
		}
	}
}

// NewCleanupJob creates the job with the configured age and count limits.
func NewCleanupJob(store drepo.ModelStore, maxAge time.Duration, keep int, log *applogger.Logger, opts ...CleanupOption) *CleanupJob {
	j := &CleanupJob{store: store, maxAge: maxAge, keep: keep, log: log, lease: 10 * time.Minute}
	for _, o := range opts {
		o(j)
	}
	return j
}

var _ queue.Job = (*CleanupJob)(nil)

func (j *CleanupJob) Name() string { return "model-cleanup" }
func (j *CleanupJob) Type() string { return models.JobTypeCleanup }

func (j *CleanupJob) Handle(ctx context.Context, payload interface{}) (interface{}, error) {
	req, err := queue.ParsePayload[models.CleanupRequest](payload)
	if err != nil {
		return nil, err
	}
	return j.Run(ctx, *req)
}

// Run executes one cleanup pass.
func (j *CleanupJob) Run(ctx context.Context, req models.CleanupRequest) (*models.CacheClearResult, error) {
	maxAge, keep := j.maxAge, j.keep
	if req.MaxAgeDays > 0 {
		maxAge = time.Duration(req.MaxAgeDays) * 24 * time.Hour
	}
	if req.MaxCount > 0 {
		keep = req.MaxCount
	}
	if j.lock != nil {
		ok, err := j.lock.TryLock(ctx, cleanupLockKey, j.lease)
		if err != nil {
			return nil, fmt.Errorf("cleanup lock: %w", err)
		}
		if !ok {
			j.log.Info("model cleanup already running elsewhere, skipping")
			return &models.CacheClearResult{Message: "Cleanup already in progress"}, nil
		}
		defer func() {
			if err := j.lock.Unlock(context.WithoutCancel(ctx), cleanupLockKey); err != nil {
				j.log.Warn("cleanup unlock failed", applogger.Error(err))
			}
		}()
	}

	n, err := j.store.CleanupOldModels(ctx, maxAge, keep)
	if err != nil {
		return nil, fmt.Errorf("cleanup models: %w", err)
	}
	j.log.Info("model cache cleaned",
		applogger.Int64("removed", n),
		applogger.Duration("max_age", maxAge),
		applogger.Int("keep", keep))
	return &models.CacheClearResult{Message: fmt.Sprintf("Cleared %d old models", n), ClearedCount: n}, nil
}

// CleanupTask adapts the job to a scheduler task that runs in process.
func (j *CleanupJob) CleanupTask() queue.Task {
	return func(ctx context.Context) error {
		_, err := j.Run(ctx, models.CleanupRequest{})
		return err
	}
}
