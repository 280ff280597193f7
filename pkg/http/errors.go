package http

import (
	"fmt"
	"net/http"
)

// Error codes returned in AppError.Code. Validation failures use
// "ERR_" plus the upper-cased validator tag instead.
const (
	CodeNotFound       = "ERR_NOT_FOUND"
	CodeBadRequest     = "ERR_BAD_REQUEST"
	CodeUnavailable    = "ERR_UNAVAILABLE"
	CodeInternal       = "ERR_INTERNAL"
	CodeRateLimited    = "ERR_RATE_LIMITED"
	CodeDuplicate      = "ERR_DUPLICATE"
	CodeUnsupportedAlg = "ERR_UNSUPPORTED_ALGORITHM"
	CodeNoData         = "ERR_NO_DATA"
	CodeInsufficient   = "ERR_INSUFFICIENT_DATA"
	CodeNoForecasts    = "ERR_NO_VALID_FORECASTS"
)

// AppError is a client-facing error carrying its HTTP status. Err is kept
// for logging and errors.Is and never serialized.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates an AppError without params.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Field: field, Status: status}
}

// WithError records the cause.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, "", message, http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, "", message, http.StatusBadRequest)
}

// FieldError is a 400 tied to one request field.
func FieldError(code, field, message string) *AppError {
	return NewAppError(code, field, message, http.StatusBadRequest)
}

func ServiceUnavailableError(message string) *AppError {
	return NewAppError(CodeUnavailable, "", message, http.StatusServiceUnavailable)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(CodeRateLimited, "", message, http.StatusTooManyRequests)
}

func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}
