package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgorithmsCommandListsCatalog(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"algorithms"})
	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, out.String(), "best_fit")
	assert.Contains(t, out.String(), "linear_regression")
}

func TestAlgorithmsCommandJSON(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"algorithms", "--json"})
	require.NoError(t, root.Execute())

	var catalog map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &catalog))
	assert.Equal(t, "Best Fit (Auto-Select)", catalog["best_fit"])
}

func TestReadForecastRequest(t *testing.T) {
	req, err := readForecastRequest(strings.NewReader(`{"selectedItem":"A","algorithm":"holt_winters"}`), "-")
	require.NoError(t, err)
	assert.Equal(t, "product", req.ForecastBy)
	assert.Equal(t, 12, req.HistoricPeriod)
	assert.Equal(t, 6, req.ForecastPeriod)

	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"forecastBy":"planet"}`), 0o600))
	_, err = readForecastRequest(nil, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_ONEOF")

	_, err = readForecastRequest(strings.NewReader(`{`), "-")
	assert.ErrorContains(t, err, "decode request")
}

func TestForecastRequiresRequestFlag(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"forecast"})
	assert.ErrorContains(t, root.Execute(), `required flag(s) "request" not set`)
}

func TestCleanupRejectsNegativeFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"cleanup", "--max-count=-1"})
	assert.ErrorContains(t, root.Execute(), "must not be negative")
}
