package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Job handles one message type. The returned value is stored as the job
// result and must be JSON serialisable.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) (interface{}, error)
}

// State is the lifecycle position of an enqueued message.
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateRetrying State = "retrying"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Status is the record kept for every message until StatusTTL expires.
type Status struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	State     State           `json:"state"`
	Attempts  int             `json:"attempts"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Terminal reports whether no further state change will happen.
func (s *Status) Terminal() bool {
	return s.State == StateDone || s.State == StateFailed
}

type ctxKey struct{}

// WithMessageID stores the id of the message being handled.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// MessageID returns the id of the message a Job is handling.
func MessageID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
