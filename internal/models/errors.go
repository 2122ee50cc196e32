package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed refresh cycle.
type ErrorKind string

const (
	ErrNoToken      ErrorKind = "no-token"
	ErrTokenExpired ErrorKind = "token-expired"
	ErrAPI          ErrorKind = "api-error"
	ErrRateLimited  ErrorKind = "rate-limited"
	ErrNetwork      ErrorKind = "network-error"
	ErrParse        ErrorKind = "parse-error"
)

// UsageError is the structured error produced anywhere in a refresh cycle.
type UsageError struct {
	RetryAfter *time.Time
	Kind       ErrorKind
	Message    string
	HTTPStatus int
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Kind, e.Message, e.HTTPStatus)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewUsageError creates a UsageError without HTTP details.
func NewUsageError(kind ErrorKind, format string, args ...any) *UsageError {
	return &UsageError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsUsageError extracts a *UsageError from err. Any other non-nil error is
// reported as a network error so callers always get a classified value.
func AsUsageError(err error) *UsageError {
	if err == nil {
		return nil
	}
	var ue *UsageError
	if errors.As(err, &ue) {
		return ue
	}
	return &UsageError{Kind: ErrNetwork, Message: err.Error()}
}

// StatusLabel returns the short label shown in the status line for an error kind.
func (k ErrorKind) StatusLabel() string {
	switch k {
	case ErrNoToken:
		return "No token"
	case ErrTokenExpired:
		return "Auth expired"
	case ErrAPI:
		return "API error"
	case ErrRateLimited:
		return "Rate limited"
	case ErrNetwork:
		return "Offline"
	case ErrParse:
		return "Parse error"
	default:
		return "Error"
	}
}
