package usecase

import (
	"context"
	"errors"

	pkgkafka "DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
)

// Consumer is the message source the collector drives.
type Consumer interface {
	RegisterHandler(h pkgkafka.MessageHandler)
	Start() error
	Stop(ctx context.Context) error
}

// Pipeline is the buffering stage behind the record handler.
type Pipeline interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

// IngestCollector wires the ingest handlers to a consumer and owns the
// lifecycle of both the consumer and the pipeline.
type IngestCollector struct {
	consumer Consumer
	pipe     Pipeline
	handlers []pkgkafka.MessageHandler
	log      *applogger.Logger
}

func NewIngestCollector(consumer Consumer, pipe Pipeline, log *applogger.Logger, handlers ...pkgkafka.MessageHandler) *IngestCollector {
	return &IngestCollector{consumer: consumer, pipe: pipe, handlers: handlers, log: log}
}

// Start begins the pipeline, then consumption.
func (c *IngestCollector) Start(ctx context.Context) error {
	for _, h := range c.handlers {
		c.consumer.RegisterHandler(h)
	}
	c.pipe.Start(ctx)
	if err := c.consumer.Start(); err != nil {
		_ = c.pipe.Stop(ctx)
		return err
	}
	c.log.Info("ingest collector started", applogger.Int("handlers", len(c.handlers)))
	return nil
}

// Shutdown stops consumption first so the pipeline's final flush sees every
// accepted message.
func (c *IngestCollector) Shutdown(ctx context.Context) error {
	return errors.Join(c.consumer.Stop(ctx), c.pipe.Stop(ctx))
}
