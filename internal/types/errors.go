package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the failure classes callers branch on.
var (
	ErrTransport     = errors.New("transport failure")
	ErrValidation    = errors.New("invalid record")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("invalid configuration")
	ErrDropped       = errors.New("record dropped by pipeline")
)

// TransportError wraps network and HTTP failures of the scraping API.
type TransportError struct {
	Op         string // "details" or "search"
	Query      string
	StatusCode int
	Attempts   int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s %q", e.Op, e.Query)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("transport error for %s: %v", msg, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) IsRetryable() bool { return e.Retryable }

// ValidationError reports a record that lacks a required field.
type ValidationError struct {
	ID     string
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("validation error for %s: %s %s", e.ID, e.Field, e.Reason)
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConfigurationError reports missing or invalid settings detected at startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// StorageError wraps errors that occur in a storage backend.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the normalization pipeline.
type PipelineError struct {
	Stage string
	ID    string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q for %s: %v", e.Stage, e.ID, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
