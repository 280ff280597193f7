package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\nserver:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 15*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, 100, c.Ingest.BufferSize)
	assert.Equal(t, 2.0, c.RateLimit.RPS)
	assert.Equal(t, 168*time.Hour, c.Forecast.CleanupMaxAge)
	assert.Equal(t, 50, c.Forecast.CleanupMaxKeep)
	assert.Equal(t, uint32(5), c.Forecast.Breaker.MaxFailures)
	assert.Equal(t, "demandcast.records", c.Kafka.RecordsTopic)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
}

func TestValidateRejectsBadValues(t *testing.T) {
	_, err := Parse([]byte("environment: test\nkafka:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "kafka.brokers")

	_, err = Parse([]byte("environment: test\nforecast:\n  workers: 0\n"))
	assert.ErrorContains(t, err, "forecast.workers")

	_, err = Parse([]byte("environment: test\nserver:\n  port: 70000\n"))
	assert.ErrorContains(t, err, "server.port")
}

func TestApplyEnvOverrides(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	env := map[string]string{
		"DEMANDCAST_PORT":             "7000",
		"DEMANDCAST_KAFKA_BROKERS":    "k1:9092,k2:9092",
		"DEMANDCAST_FORECAST_WORKERS": "4",
		"DEMANDCAST_REDIS_ENABLED":    "true",
		"DEMANDCAST_WEBHOOK_URL":      "http://hook.local/done",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, 7000, c.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, 4, c.Forecast.Workers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "http://hook.local/done", c.Webhook.URL)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("environment: staging\nforecast:\n  workers: 3\n"), 0o600))

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, 3, c.Forecast.Workers)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	c, err := Parse([]byte("environment: test\npostgres:\n  password: secret\n"))
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=demandcast sslmode=disable", c.PostgresDSN())
}

func TestShippedConfigParses(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, 4, c.Forecast.Workers)
}
