package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/internal/middleware"
	pkgkafka "DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// batchStore implements only the write side of RecordStore.
type batchStore struct {
	drepo.RecordStore
	mu     sync.Mutex
	stored []*models.RawRecord
	err    error
}

func (s *batchStore) StoreBatch(_ context.Context, records []*models.RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, records...)
	return nil
}

type factorSink struct {
	drepo.FactorStore
	stored []*models.ExternalFactor
	err    error
}

func (s *factorSink) StoreFactors(_ context.Context, f []*models.ExternalFactor) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, f...)
	return nil
}

func newIngest(store *batchStore, factors *factorSink) (*RecordProcessor, *middleware.IngestPipeline) {
	proc := NewRecordProcessor(store, factors, metrics.Nop{}, "kafka", applogger.Nop())
	return proc, middleware.NewIngestPipeline(proc, metrics.Nop{}, middleware.WithBatchSize(2))
}

func TestRecordsHandlerAcceptsArrayAndObject(t *testing.T) {
	store := &batchStore{}
	_, pipe := newIngest(store, &factorSink{})
	h := NewKafkaRecordsHandler("demandcast.records", pipe, metrics.Nop{}, applogger.Nop())
	ctx := context.Background()

	assert.Equal(t, "demandcast.records", h.Topic())
	require.NoError(t, h.Handle(ctx, []byte(`[
		{"date":"2024-01-01","quantity":3,"product":"P1","customer":"C1","location":"L1"},
		{"date":"2024-01-02","quantity":-1,"product":"P1","customer":"C1","location":"L1"},
		{"date":"2024-01-03","quantity":5,"product":"P2","customer":"C1","location":"L1"}
	]`)))
	require.Len(t, store.stored, 2)
	assert.Equal(t, "P2", store.stored[1].Product)

	require.NoError(t, h.Handle(ctx, []byte(`{"date":"2024-02-01","quantity":1,"product":"P3","customer":"C2","location":"L2"}`)))
	assert.Equal(t, 1, pipe.Pending())
}

func TestRecordsHandlerRejectsMessagesWithoutValidRows(t *testing.T) {
	_, pipe := newIngest(&batchStore{}, &factorSink{})
	h := NewKafkaRecordsHandler("t", pipe, metrics.Nop{}, applogger.Nop())

	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`[{"date":"bad","product":"P"}]`)), errNoValidRows)
	assert.Error(t, h.Handle(context.Background(), []byte(`not json`)))
}

func TestRecordsHandlerBuffersOnStoreFailure(t *testing.T) {
	store := &batchStore{err: errors.New("down")}
	_, pipe := newIngest(store, &factorSink{})
	h := NewKafkaRecordsHandler("t", pipe, metrics.Nop{}, applogger.Nop())

	require.NoError(t, h.Handle(context.Background(), []byte(`[
		{"date":"2024-01-01","quantity":3,"product":"P1","customer":"C1","location":"L1"},
		{"date":"2024-01-02","quantity":4,"product":"P1","customer":"C1","location":"L1"}
	]`)))
	assert.Equal(t, 1, pipe.Buffered())
}

func TestFactorsHandler(t *testing.T) {
	factors := &factorSink{}
	proc, _ := newIngest(&batchStore{}, factors)
	h := NewKafkaFactorsHandler("demandcast.factors", proc, metrics.Nop{}, applogger.Nop())

	require.NoError(t, h.Handle(context.Background(), []byte(`[
		{"date":"2024-01-01","factor_name":"temperature","factor_value":3.5},
		{"date":"2024-01-01","factor_name":"","factor_value":1}
	]`)))
	require.Len(t, factors.stored, 1)
	assert.Equal(t, 3.5, factors.stored[0].FactorValue)

	factors.err = errors.New("down")
	err := h.Handle(context.Background(), []byte(`{"date":"2024-01-02","factor_name":"promo","factor_value":1}`))
	assert.ErrorContains(t, err, "process factors")
}

type consumerStub struct {
	registered []string
	started    bool
	stopped    bool
	startErr   error
}

func (c *consumerStub) RegisterHandler(h pkgkafka.MessageHandler) {
	c.registered = append(c.registered, h.Topic())
}

func (c *consumerStub) Start() error {
	c.started = true
	return c.startErr
}

func (c *consumerStub) Stop(context.Context) error {
	c.stopped = true
	return nil
}

func TestIngestCollectorLifecycle(t *testing.T) {
	store := &batchStore{}
	proc, pipe := newIngest(store, &factorSink{})
	cons := &consumerStub{}
	c := NewIngestCollector(cons, pipe, applogger.Nop(),
		NewKafkaRecordsHandler("records", pipe, metrics.Nop{}, applogger.Nop()),
		NewKafkaFactorsHandler("factors", proc, metrics.Nop{}, applogger.Nop()),
	)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []string{"records", "factors"}, cons.registered)
	require.NoError(t, pipe.Process(ctx, models.IngestRecord{Date: "2024-01-01", Quantity: 1, Product: "P", Customer: "C", Location: "L"}))

	require.NoError(t, c.Shutdown(ctx))
	assert.True(t, cons.stopped)
	assert.Len(t, store.stored, 1)
}
