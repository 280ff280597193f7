package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	xhttp "DemandCast/pkg/http"
	applogger "DemandCast/pkg/logger"
)

// Notifier posts job completions to a callback URL. An empty URL disables it.
type Notifier struct {
	url      string
	attempts int
	backoff  time.Duration
	client   *xhttp.Client
	l        *applogger.Logger
}

type Option func(*Notifier)

// WithAttempts sets how many times a failed post is tried.
func WithAttempts(n int) Option {
	return func(w *Notifier) {
		if n > 0 {
			w.attempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts. Attempt i waits i*d.
func WithBackoff(d time.Duration) Option {
	return func(w *Notifier) { w.backoff = d }
}

// NewNotifier builds a notifier with its own client timeout.
func NewNotifier(url string, timeout time.Duration, l *applogger.Logger, opts ...Option) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	w := &Notifier{
		url:      url,
		attempts: 3,
		backoff:  50 * time.Millisecond,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:        l,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Enabled reports whether a callback URL is configured.
func (w *Notifier) Enabled() bool { return w != nil && w.url != "" }

// Notify posts ev, retrying transient failures. Client errors other than
// 408 and 429 are not retried.
func (w *Notifier) Notify(ctx context.Context, ev models.JobCompletion) error {
	if !w.Enabled() {
		return nil
	}
	var err error
	for i := 1; i <= w.attempts; i++ {
		if err = w.post(ctx, ev); err == nil {
			w.l.Debug("webhook delivered", applogger.String("job_id", ev.JobID), applogger.Int("attempt", i))
			return nil
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			break
		}
		if i == w.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * w.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	w.l.Warn("webhook delivery failed",
		applogger.String("job_id", ev.JobID),
		applogger.Int("max_attempts", w.attempts),
		applogger.Error(err))
	return err
}

func (w *Notifier) post(ctx context.Context, ev models.JobCompletion) error {
	err := w.client.Do(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     w.url,
		Headers: map[string]string{"X-DemandCast-Job": ev.JobID},
		Body:    ev,
	}, nil)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	return nil
}
