package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(&Config{Level: level, Format: "json", Writer: &buf})
	require.NoError(t, err)
	return l, &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, ln := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if ln == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(ln), &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerWritesTypedFields(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.With("runner").Info("model fitted",
		String("algorithm", "holt_winters"),
		Int("points", 24),
		Float64("accuracy", 91.5),
		Bool("cached", true),
		Duration("took_ms", 1500*time.Millisecond),
		Error(errors.New("boom")))
	l.Debug("hidden")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "runner", got[0]["component"])
	assert.Equal(t, "holt_winters", got[0]["algorithm"])
	assert.Equal(t, 24.0, got[0]["points"])
	assert.Equal(t, 91.5, got[0]["accuracy"])
	assert.Equal(t, true, got[0]["cached"])
	assert.Equal(t, 1500.0, got[0]["took_ms"])
	assert.Equal(t, "boom", got[0]["error"])
	assert.Contains(t, got[0]["caller"], "logger_test.go")
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestCollectorReachesExistingChildren(t *testing.T) {
	root, _ := newJSONLogger(t, "info")
	child := root.With("store")

	pub := &capturePublisher{}
	root.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})

	child.Warn("slow query")
	child.Error("save failed", String("model_hash", "abc"))
	root.RemoveCollector()

	_, batches := pub.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	entry := batches[0][0]
	assert.Equal(t, "save failed", entry.Message)
	assert.Equal(t, "abc", entry.Fields["model_hash"])
	assert.Contains(t, entry.Caller, "logger_test.go")

	// detached: nothing more is collected
	child.Error("after remove")
	_, batches = pub.snapshot()
	assert.Len(t, batches, 1)
}
