package common

import (
	"errors"
	"fmt"
	"time"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Per-sheet error taxonomy. All of these are local to one answer sheet
// and never abort a batch; only a zero-success batch outcome is fatal.
var (
	ErrNoMatchingTemplate = errors.New("no matching template")
	ErrMalformedResponse  = errors.New("malformed grading response")
	ErrRateLimited        = errors.New("rate limited")
	ErrTransientService   = errors.New("transient service error")
	ErrGradingFailed      = errors.New("grading failed after retries")
	ErrNoCoordinateSchema = errors.New("no coordinate schema for template")
	ErrMissingSourcePDF   = errors.New("source pdf missing")

	ErrInvalidInput = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// RateLimitError carries the provider's Retry-After hint alongside the
// ErrRateLimited sentinel so the retry loop can honor it.
type RateLimitError struct {
	Cause      error
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Cause)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// NewRateLimitError builds a RateLimitError; retryAfterSecs <= 0 leaves
// the wait to the caller's backoff schedule.
func NewRateLimitError(cause error, retryAfterSecs int) *RateLimitError {
	return &RateLimitError{
		Cause:      cause,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
	}
}
