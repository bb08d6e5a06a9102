package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPatient wraps every input validation failure.
	ErrInvalidPatient = errors.New("invalid patient state")

	// ErrValidatorUnavailable is returned when the State Validator cannot run.
	ErrValidatorUnavailable = errors.New("state validator unavailable")

	// ErrInvalidOutput marks an advisory output that failed structural checks.
	ErrInvalidOutput = errors.New("invalid advisory output")

	// ErrCapabilityUnavailable is returned by ports that are not configured.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Key    string // Field path
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %v)", e.Key, e.Reason, e.Value)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap lets errors.Is match ErrInvalidPatient.
func (e *AggregateError) Unwrap() error { return ErrInvalidPatient }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// CapabilityKind classifies advisory port failures.
type CapabilityKind string

const (
	CapabilityTimeout       CapabilityKind = "timeout"
	CapabilityInvalidOutput CapabilityKind = "invalid_output"
	CapabilityUnavailable   CapabilityKind = "unavailable"
	CapabilityCanceled      CapabilityKind = "canceled"
)

// CapabilityError is a recoverable advisory port failure.
type CapabilityError struct {
	Port string
	Kind CapabilityKind
	Err  error
}

func (e *CapabilityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Port, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Port, e.Kind, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

var (
	// ErrBundleNotFound is returned when an audit bundle ID cannot be found in the store.
	ErrBundleNotFound = errors.New("audit bundle not found")

	// ErrBundleExists is returned when saving a bundle ID that is already stored.
	// Bundles are immutable once handed off.
	ErrBundleExists = errors.New("audit bundle already exists")
)
