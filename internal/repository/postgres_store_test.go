package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	applogger "DemandCast/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newModelStore(t *testing.T) (*PostgresModelStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	s := NewPostgresModelStore(mock, applogger.Nop())
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func modelCfg() models.ForecastConfig {
	return models.ForecastConfig{Algorithm: "linear_regression", Interval: "month", ForecastPeriod: 3}
}

func TestFindCachedModel(t *testing.T) {
	s, mock := newModelStore(t)
	data := []float64{1, 2, 3}
	want := models.ModelHash("linear_regression", models.GenerateConfigHash(modelCfg()), models.DataHash(data))

	mock.ExpectQuery("SELECT model_hash FROM saved_models").
		WithArgs(want).
		WillReturnRows(pgxmock.NewRows([]string{"model_hash"}).AddRow(want))
	got, err := s.FindCachedModel(context.Background(), "linear_regression", modelCfg(), data)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	mock.ExpectQuery("SELECT model_hash FROM saved_models").
		WithArgs(want).
		WillReturnError(pgx.ErrNoRows)
	got, err = s.FindCachedModel(context.Background(), "linear_regression", modelCfg(), data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadModelBumpsUsage(t *testing.T) {
	s, mock := newModelStore(t)
	artifact, _ := json.Marshal(models.ModelArtifact{Forecast: []float64{4, 5}, Horizon: 2, LastDate: "2024-03-01", Interval: models.IntervalMonth})

	mock.ExpectQuery("UPDATE saved_models SET last_used").
		WithArgs("h1", fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"model_hash", "algorithm", "config_hash", "data_hash", "artifact", "meta",
			"accuracy", "mae", "rmse", "created_at", "last_used", "use_count"}).
			AddRow("h1", "linear_regression", "c", "d", artifact, []byte(`{"data_points":12}`),
				91.5, 1.2, 1.5, fixedNow.Add(-time.Hour), fixedNow, 3))

	sm, err := s.LoadModel(context.Background(), "h1")
	require.NoError(t, err)
	require.NotNil(t, sm)
	assert.Equal(t, 3, sm.UseCount)
	assert.Equal(t, []float64{4, 5}, sm.Artifact.Forecast)
	assert.True(t, sm.Artifact.Matches(2, "2024-03-01", models.IntervalMonth))
	assert.EqualValues(t, 12, sm.Meta["data_points"])

	mock.ExpectQuery("UPDATE saved_models SET last_used").
		WithArgs("missing", fixedNow).
		WillReturnError(pgx.ErrNoRows)
	sm, err = s.LoadModel(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, sm)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveModelUpsertsWithHistory(t *testing.T) {
	s, mock := newModelStore(t)
	data := []float64{3, 4, 5}
	cfgHash := models.GenerateConfigHash(modelCfg())
	hash := models.ModelHash("linear_regression", cfgHash, models.DataHash(data))
	m := models.Metrics{Accuracy: 88.2, MAE: 1.1, RMSE: 1.4}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO saved_models").
		WithArgs(hash, "linear_regression", cfgHash, models.DataHash(data), pgxmock.AnyArg(), pgxmock.AnyArg(),
			88.2, 1.1, 1.4, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO model_accuracy_history").
		WithArgs(hash, cfgHash, "linear_regression", 88.2, 1.1, 1.4, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	artifact := &models.ModelArtifact{Forecast: []float64{6}, Horizon: 1, LastDate: "2024-03-01", Interval: models.IntervalMonth}
	require.NoError(t, s.SaveModel(context.Background(), artifact, "linear_regression", modelCfg(), data, m, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveModelRollsBackOnHistoryFailure(t *testing.T) {
	s, mock := newModelStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO saved_models").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO model_accuracy_history").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.SaveModel(context.Background(), &models.ModelArtifact{}, "naive", modelCfg(), []float64{1}, models.Metrics{}, nil)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupOldModels(t *testing.T) {
	s, mock := newModelStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM saved_models WHERE created_at <").
		WithArgs(fixedNow.Add(-7 * 24 * time.Hour)).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec("ORDER BY last_used DESC OFFSET").
		WithArgs(50).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	n, err := s.CleanupOldModels(context.Background(), 7*24*time.Hour, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearAll(t *testing.T) {
	s, mock := newModelStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM saved_models").WillReturnResult(pgxmock.NewResult("DELETE", 9))
	mock.ExpectExec("DELETE FROM model_accuracy_history").WillReturnResult(pgxmock.NewResult("DELETE", 20))
	mock.ExpectCommit()

	n, err := s.ClearAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListModelsAndHistory(t *testing.T) {
	s, mock := newModelStore(t)
	mock.ExpectQuery("FROM saved_models ORDER BY last_used DESC LIMIT").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"model_hash", "algorithm", "accuracy", "created_at", "last_used", "use_count"}).
			AddRow("h1", "naive", 70.0, fixedNow.Add(-time.Hour), fixedNow, 2))
	list, err := s.ListModels(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-05-01T12:00:00Z", list[0].LastUsed)

	mock.ExpectQuery("FROM model_accuracy_history WHERE config_hash").
		WithArgs("cfg", fixedNow.AddDate(0, 0, -30)).
		WillReturnRows(pgxmock.NewRows([]string{"model_hash", "config_hash", "algorithm", "accuracy", "mae", "rmse", "recorded_at"}))
	hist, err := s.AccuracyHistory(context.Background(), "cfg", 30)
	require.NoError(t, err)
	assert.NotNil(t, hist)
	assert.Empty(t, hist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newConfigStore(t *testing.T) (*PostgresConfigurationStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	s := NewPostgresConfigurationStore(mock, applogger.Nop())
	s.now = func() time.Time { return fixedNow }
	s.newID = func() string { return "0b7c2d1e-5a51-4c53-9a0e-2f1f9b1f6c11" }
	return s, mock
}

func TestConfigurationCreate(t *testing.T) {
	s, mock := newConfigStore(t)
	mock.ExpectExec("INSERT INTO forecast_configurations").
		WithArgs("0b7c2d1e-5a51-4c53-9a0e-2f1f9b1f6c11", "monthly", "", pgxmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c := &models.SavedConfiguration{Name: "monthly", Config: modelCfg()}
	require.NoError(t, s.Create(context.Background(), c))
	assert.Equal(t, "0b7c2d1e-5a51-4c53-9a0e-2f1f9b1f6c11", c.ID)
	assert.Equal(t, fixedNow, c.UpdatedAt)
}

func TestConfigurationDuplicateName(t *testing.T) {
	s, mock := newConfigStore(t)
	mock.ExpectExec("INSERT INTO forecast_configurations").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.Create(context.Background(), &models.SavedConfiguration{Name: "monthly"})
	assert.ErrorIs(t, err, models.ErrDuplicate)
	assert.EqualError(t, err, "Configuration name already exists")
}

func TestConfigurationGetAndList(t *testing.T) {
	s, mock := newConfigStore(t)
	body, _ := json.Marshal(modelCfg())
	cols := []string{"id", "name", "description", "config", "created_at", "updated_at"}

	mock.ExpectQuery("WHERE id = \\$1").
		WithArgs("x").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("x", "monthly", "d", body, fixedNow, fixedNow))
	c, err := s.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "linear_regression", c.Config.Algorithm)

	mock.ExpectQuery("WHERE id = \\$1").WithArgs("y").WillReturnError(pgx.ErrNoRows)
	_, err = s.Get(context.Background(), "y")
	assert.ErrorIs(t, err, models.ErrNotFound)

	mock.ExpectQuery("ORDER BY updated_at DESC").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("b", "second", "", body, fixedNow, fixedNow).
			AddRow("a", "first", "", body, fixedNow, fixedNow.Add(-time.Hour)))
	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationUpdateAndDelete(t *testing.T) {
	s, mock := newConfigStore(t)
	mock.ExpectQuery("UPDATE forecast_configurations").
		WithArgs("x", "renamed", "", pgxmock.AnyArg(), fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(fixedNow.Add(-48 * time.Hour)))
	c := &models.SavedConfiguration{ID: "x", Name: "renamed", Config: modelCfg()}
	require.NoError(t, s.Update(context.Background(), c))
	assert.Equal(t, fixedNow.Add(-48*time.Hour), c.CreatedAt)

	mock.ExpectQuery("UPDATE forecast_configurations").WillReturnError(pgx.ErrNoRows)
	assert.ErrorIs(t, s.Update(context.Background(), &models.SavedConfiguration{ID: "gone"}), models.ErrNotFound)

	mock.ExpectExec("DELETE FROM forecast_configurations").WithArgs("x").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.Delete(context.Background(), "x"))

	mock.ExpectExec("DELETE FROM forecast_configurations").WithArgs("gone").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, s.Delete(context.Background(), "gone"), models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
