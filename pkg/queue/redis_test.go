package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"DemandCast/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPayload struct {
	Value int `json:"value"`
}

type funcJob struct {
	typ string
	fn  func(ctx context.Context, payload interface{}) (interface{}, error)
}

func (j funcJob) Name() string { return j.typ + "-job" }
func (j funcJob) Type() string { return j.typ }
func (j funcJob) Handle(ctx context.Context, payload interface{}) (interface{}, error) {
	return j.fn(ctx, payload)
}

func newQueue(t *testing.T, cfg *QueueConfig, mode QueueMode) (*miniredis.Miniredis, *RedisQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisQueue(logger.Nop(), cfg, client, mode, WithKeyPrefix("test:queue"))
}

func stop(t *testing.T, q *RedisQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
}

func TestRedisQueueProcessesJobAndStoresResult(t *testing.T) {
	_, q := newQueue(t, &QueueConfig{Workers: 1}, ModeProducerConsumer)
	var seenID atomic.Value
	q.RegisterJob(funcJob{typ: "double", fn: func(ctx context.Context, payload interface{}) (interface{}, error) {
		seenID.Store(MessageID(ctx))
		p, err := ParsePayload[echoPayload](payload)
		if err != nil {
			return nil, err
		}
		return echoPayload{Value: p.Value * 2}, nil
	}})
	require.NoError(t, q.Start())
	defer stop(t, q)

	id, err := q.Enqueue(context.Background(), "double", echoPayload{Value: 21})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var st *Status
	require.Eventually(t, func() bool {
		st, err = q.Status(context.Background(), id)
		return err == nil && st.Terminal()
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, StateDone, st.State)
	assert.Equal(t, "double", st.Type)
	var out echoPayload
	require.NoError(t, json.Unmarshal(st.Result, &out))
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, id, seenID.Load())
}

func TestRedisQueueEnqueueRequiresRegisteredJob(t *testing.T) {
	_, q := newQueue(t, nil, ModeProducerConsumer)
	require.NoError(t, q.Start())
	defer stop(t, q)

	_, err := q.Enqueue(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no job registered")
}

func TestRedisQueueEnqueueWhenStopped(t *testing.T) {
	_, q := newQueue(t, nil, ModeProducerOnly)
	_, err := q.Enqueue(context.Background(), "any", nil)
	require.Error(t, err)
}

func TestRedisQueueProducerOnlyRecordsQueuedStatus(t *testing.T) {
	mr, q := newQueue(t, nil, ModeProducerOnly)
	require.NoError(t, q.Start())
	defer stop(t, q)

	id, err := q.Enqueue(context.Background(), "forecast", map[string]int{"a": 1})
	require.NoError(t, err)

	st, err := q.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, st.State)

	items, err := mr.List("test:queue:messages")
	require.NoError(t, err)
	require.Len(t, items, 1)
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(items[0]), &msg))
	assert.Equal(t, id, msg.ID)
	assert.JSONEq(t, `{"a":1}`, string(msg.Payload))
	assert.True(t, mr.TTL("test:queue:status:"+id) > 0)
}

func TestRedisQueueFailureGoesToDeadLetter(t *testing.T) {
	_, q := newQueue(t, &QueueConfig{Workers: 1, RetryLimit: 0}, ModeProducerConsumer)
	q.RegisterJob(funcJob{typ: "boom", fn: func(context.Context, interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	}})
	require.NoError(t, q.Start())
	defer stop(t, q)

	id, err := q.Enqueue(context.Background(), "boom", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := q.Status(context.Background(), id)
		return err == nil && st.State == StateFailed
	}, 5*time.Second, 20*time.Millisecond)

	st, _ := q.Status(context.Background(), id)
	assert.Equal(t, "boom", st.Error)
	n, err := q.DeadLetters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisQueueSchedulesRetry(t *testing.T) {
	mr, q := newQueue(t, &QueueConfig{Workers: 1, RetryLimit: 2, RetryDelay: time.Hour}, ModeProducerConsumer)
	q.RegisterJob(funcJob{typ: "flaky", fn: func(context.Context, interface{}) (interface{}, error) {
		panic("flaky")
	}})
	require.NoError(t, q.Start())
	defer stop(t, q)

	id, err := q.Enqueue(context.Background(), "flaky", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := q.Status(context.Background(), id)
		return err == nil && st.State == StateRetrying
	}, 5*time.Second, 20*time.Millisecond)

	members, err := mr.ZMembers("test:queue:retry")
	require.NoError(t, err)
	assert.Len(t, members, 1)
	st, _ := q.Status(context.Background(), id)
	assert.Equal(t, 1, st.Attempts)
	assert.Contains(t, st.Error, "job panic")
}

func TestRedisQueueMovesDueRetries(t *testing.T) {
	mr, q := newQueue(t, nil, ModeConsumerOnly)
	msg, err := json.Marshal(Message{ID: "m1", Type: "x", Attempts: 1})
	require.NoError(t, err)
	_, err = mr.ZAdd("test:queue:retry", float64(time.Now().Add(-time.Minute).Unix()), string(msg))
	require.NoError(t, err)
	_, err = mr.ZAdd("test:queue:retry", float64(time.Now().Add(time.Hour).Unix()), "later")
	require.NoError(t, err)

	q.processRetryMessages()

	items, err := mr.List("test:queue:messages")
	require.NoError(t, err)
	assert.Equal(t, []string{string(msg)}, items)
	members, _ := mr.ZMembers("test:queue:retry")
	assert.Equal(t, []string{"later"}, members)
}

func TestStatusNotFound(t *testing.T) {
	_, q := newQueue(t, nil, ModeProducerOnly)
	_, err := q.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrStatusNotFound)
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[echoPayload](json.RawMessage(`{"value":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3, p.Value)

	p, err = ParsePayload[echoPayload](map[string]interface{}{"value": 4})
	require.NoError(t, err)
	assert.Equal(t, 4, p.Value)

	p, err = ParsePayload[echoPayload](json.RawMessage("null"))
	require.NoError(t, err)
	assert.Equal(t, 0, p.Value)

	_, err = ParsePayload[echoPayload](42)
	assert.Error(t, err)
}

func TestSchedulerRunsTask(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(logger.Nop(), "tick", 10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	s.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
	s.Stop()
}
