package models

import (
	"errors"
	"fmt"
)

// Oracle failure classes. Unavailability covers transport-level
// failures and is retryable; malformation covers responses that arrived
// but cannot be used, and is never retried.
var (
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrOracleMalformed   = errors.New("oracle response malformed")
)

// ConfigurationError is fatal before the first simulated day.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// PersistenceError marks a failure to write a run artifact. Artifact
// writes are the point of the run, so these are fatal.
type PersistenceError struct {
	Artifact string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Artifact, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
