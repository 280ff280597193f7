package models

import "errors"

var (
	ErrNoData               = errors.New("no data found")
	ErrInsufficientData     = errors.New("insufficient data")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrInvalidSelection     = errors.New("invalid selection")
	ErrNoValidForecasts     = errors.New("no valid forecasts")
	ErrNotFound             = errors.New("not found")
	ErrDuplicate            = errors.New("already exists")
	ErrInvalidRecord        = errors.New("invalid record")
)

// DomainError pairs a user-facing message with a sentinel kind so callers can
// both print the message verbatim and match on the category.
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Kind }

// NewDomainError builds a DomainError of the given kind.
func NewDomainError(kind error, msg string) error {
	return &DomainError{Kind: kind, Message: msg}
}

// IsDomainError reports whether err carries a DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
