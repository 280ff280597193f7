package models

import "time"

// ModelArtifact is the reusable part of a computed forecast. It is what a
// cache hit can reapply without refitting.
type ModelArtifact struct {
	Forecast []float64 `json:"forecast"`
	Horizon  int       `json:"horizon"`
	LastDate string    `json:"last_date"`
	Interval Interval  `json:"interval"`
}

// Matches reports whether the artifact can answer a request for the given
// horizon continuing a series that ends at lastDate.
func (a *ModelArtifact) Matches(horizon int, lastDate string, iv Interval) bool {
	return a != nil && a.Horizon == horizon && a.LastDate == lastDate && a.Interval == iv && len(a.Forecast) == horizon
}

// ModelMeta carries free-form facts saved alongside a model.
type ModelMeta map[string]interface{}

// SavedModel is one row of the model cache.
type SavedModel struct {
	ModelHash  string         `json:"model_hash"`
	Algorithm  string         `json:"algorithm"`
	ConfigHash string         `json:"config_hash"`
	DataHash   string         `json:"data_hash"`
	Artifact   *ModelArtifact `json:"artifact,omitempty"`
	Meta       ModelMeta      `json:"meta,omitempty"`
	Accuracy   float64        `json:"accuracy"`
	MAE        float64        `json:"mae"`
	RMSE       float64        `json:"rmse"`
	CreatedAt  time.Time      `json:"created_at"`
	LastUsed   time.Time      `json:"last_used"`
	UseCount   int            `json:"use_count"`
}

// CacheInfo is the listing shape of a cached model.
type CacheInfo struct {
	ModelHash string  `json:"model_hash"`
	Algorithm string  `json:"algorithm"`
	Accuracy  float64 `json:"accuracy"`
	CreatedAt string  `json:"created_at"`
	LastUsed  string  `json:"last_used"`
	UseCount  int     `json:"use_count"`
}

// AccuracyRecord is one entry of a configuration's accuracy history.
type AccuracyRecord struct {
	ModelHash  string    `json:"model_hash"`
	ConfigHash string    `json:"config_hash"`
	Algorithm  string    `json:"algorithm"`
	Accuracy   float64   `json:"accuracy"`
	MAE        float64   `json:"mae"`
	RMSE       float64   `json:"rmse"`
	RecordedAt time.Time `json:"recorded_at"`
}

// CacheClearResult is returned by the cleanup endpoints.
type CacheClearResult struct {
	Message      string `json:"message"`
	ClearedCount int64  `json:"cleared_count"`
}
