package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	xhttp "DemandCast/pkg/http"
	applogger "DemandCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	gotCh := make(chan models.JobCompletion, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "j1", r.Header.Get("X-DemandCast-Job"))
		var ev models.JobCompletion
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		gotCh <- ev
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Second, applogger.Nop(), WithBackoff(time.Millisecond))
	err := n.Notify(context.Background(), models.JobCompletion{JobID: "j1", Type: models.JobTypeForecast, Status: "done"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	got := <-gotCh
	assert.Equal(t, "j1", got.JobID)
	assert.Equal(t, "done", got.Status)
}

func TestNotifierGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Second, applogger.Nop(), WithAttempts(2), WithBackoff(time.Millisecond))
	err := n.Notify(context.Background(), models.JobCompletion{JobID: "j2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotifierStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Second, applogger.Nop(), WithAttempts(3), WithBackoff(time.Millisecond))
	err := n.Notify(context.Background(), models.JobCompletion{JobID: "j3"})

	var se *xhttp.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "bad payload", se.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotifierDisabled(t *testing.T) {
	n := NewNotifier("", 0, applogger.Nop())
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), models.JobCompletion{JobID: "x"}))
}
