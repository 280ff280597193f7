package models

import "time"

// SavedConfiguration is a named, reusable ForecastConfig.
type SavedConfiguration struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Config      ForecastConfig `json:"config"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ConfigurationRequest is the body of create and update calls.
type ConfigurationRequest struct {
	Name        string         `json:"name" validate:"required,max=255"`
	Description string         `json:"description" validate:"max=2000"`
	Config      ForecastConfig `json:"config"`
}

// ConfigurationIDRequest binds the :id path parameter.
type ConfigurationIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

// ConfigurationUpdateRequest binds both the path id and the body.
type ConfigurationUpdateRequest struct {
	ID          string         `param:"id" json:"-" validate:"required,uuid"`
	Name        string         `json:"name" validate:"required,max=255"`
	Description string         `json:"description" validate:"max=2000"`
	Config      ForecastConfig `json:"config"`
}
