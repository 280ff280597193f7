package models

import "time"

const (
	JobTypeForecast = "forecast"
	JobTypeCleanup  = "model_cleanup"
)

// CleanupRequest overrides the configured cleanup limits. Zero values keep
// the configured ones.
type CleanupRequest struct {
	MaxAgeDays int `json:"max_age_days,omitempty"`
	MaxCount   int `json:"max_count,omitempty"`
}

// JobCompletion is posted to the webhook when a background job finishes.
type JobCompletion struct {
	JobID      string      `json:"job_id"`
	Type       string      `json:"type"`
	Status     string      `json:"status"`
	ConfigHash string      `json:"config_hash,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	FinishedAt time.Time   `json:"finished_at"`
}
