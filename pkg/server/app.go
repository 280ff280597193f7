package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"DemandCast/internal/usecase"
	"DemandCast/pkg/config"
	xhttp "DemandCast/pkg/http"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/queue"
)

// App encapsulates the service lifecycle: HTTP API, Kafka ingest, the job
// queue and the model cache cleanup schedule.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	ingest     *usecase.IngestCollector
	jobs       *queue.RedisQueue
	scheduler  *queue.Scheduler
}

// New creates an App. ingest and jobs are nil when Kafka or Redis are
// disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	ingest *usecase.IngestCollector,
	jobs *queue.RedisQueue,
	scheduler *queue.Scheduler,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		ingest:     ingest,
		jobs:       jobs,
		scheduler:  scheduler,
	}
}

// Run starts every component and blocks until ctx is done, a signal arrives
// or the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.ingest != nil {
		if err := a.ingest.Start(ctx); err != nil {
			return err
		}
		a.log.Info("ingest started",
			applogger.String("records_topic", a.cfg.Kafka.RecordsTopic),
			applogger.String("factors_topic", a.cfg.Kafka.FactorsTopic))
	}

	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			a.shutdown()
			return err
		}
		a.log.Info("job queue started", applogger.Int("workers", a.cfg.Queue.Workers))
	}

	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.shutdown()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.httpServer.Err():
		a.log.Error("http server failed", applogger.Error(runErr))
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown stops accepting requests first, then drains background work.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.jobs != nil {
		if err := a.jobs.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if a.ingest != nil {
		if err := a.ingest.Shutdown(ctx); err != nil {
			a.log.Warn("ingest stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
