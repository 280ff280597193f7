package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOptions(t *testing.T) {
	cfg := ClientConfig{
		Host:         "ch.local",
		Port:         9440,
		Database:     "demandcast",
		User:         "u",
		Password:     "p",
		DialTimeout:  time.Second,
		MaxExecTime:  90 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	}
	opts := buildOptions(cfg)

	assert.Equal(t, []string{"ch.local:9440"}, opts.Addr)
	assert.Equal(t, "demandcast", opts.Auth.Database)
	assert.Equal(t, ch.Native, opts.Protocol)
	assert.Equal(t, 90, opts.Settings["max_execution_time"])
	assert.Equal(t, 1, opts.Settings["async_insert"])
	assert.Equal(t, 1, opts.Settings["wait_for_async_insert"])

	cfg.UseHTTP = true
	cfg.AsyncInsert = false
	cfg.MaxExecTime = 0
	opts = buildOptions(cfg)
	assert.Equal(t, ch.HTTP, opts.Protocol)
	assert.Empty(t, opts.Settings)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithHost(""))
	assert.ErrorContains(t, err, "host is required")
}

func TestInitSchemaStopsAtFirstFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := NewClientWithDB(db)
	defer c.Close()

	mock.ExpectExec("CREATE DATABASE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("syntax"))

	err = c.InitSchema(context.Background(), []string{
		"CREATE DATABASE IF NOT EXISTS x",
		"CREATE TABLE broken",
		"CREATE TABLE never_run",
	})
	assert.ErrorContains(t, err, "init schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}
