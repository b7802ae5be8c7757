package entities

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is matched by every ValidationError
var ErrInvalidRequest = errors.New("invalid-request")

// ValidationError reports a missing or malformed request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidRequest) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Missing returns a ValidationError for an absent field
func Missing(field string) error {
	return &ValidationError{Field: field}
}

// UpstreamError is a non-success answer from an external service.
// Body carries the upstream payload so callers can pass it through.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}
