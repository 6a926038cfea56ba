/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Validation failures are ordinary values: callers render them, nothing in
  the engine panics or retries.

ERROR CATEGORIES:
  1. Workflow errors - InvalidTransition, MissingRequiredField, UnknownStatus
  2. Input errors - Unknown domain or granularity, invalid payloads
  3. Store errors - Missing records, duplicate idempotency keys, lost races

USAGE:
  err := generic.ValidateTransition(generic.DomainWithdrawal, "pending", "cancelled", payload)
  if errors.Is(err, generic.ErrMissingRequiredField) {
      var missing *generic.MissingFieldError
      errors.As(err, &missing)
      // missing.Field == generic.FieldCancellationReason
  }

SEE ALSO:
  - workflow.go: Produces the workflow errors
  - classify.go: Produces UnknownStatus warnings
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when the requested status is not
	// reachable from the current status for the domain.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrMissingRequiredField is returned when a transition needs a payload
	// field that was not supplied (e.g. a cancellation reason).
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrUnknownStatus is returned when a status is outside the domain enum.
	// The classifier reports it as a warning, never as a failure.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrUnknownDomain is returned for a domain with no transition table.
	ErrUnknownDomain = errors.New("unknown domain")

	// ErrUnknownGranularity is returned for an aggregation granularity other
	// than month or day.
	ErrUnknownGranularity = errors.New("unknown granularity")

	// ErrRecordNotFound is returned when a referenced record doesn't exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. Expected on retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrInvalidPayload is returned when a submission fails validation.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrStatusChanged is returned by a store when a conditional status
	// write finds the record no longer in the status it was validated
	// against. The Dispatcher reports it as an InvalidTransitionError.
	ErrStatusChanged = errors.New("status changed since it was read")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError describes a refused status change.
type InvalidTransitionError struct {
	Domain Domain
	From   Status
	To     Status
	Action Action
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("%s: cannot move from %s to %s", e.Domain, e.From, e.To)
	if e.Action != "" {
		msg = fmt.Sprintf("%s: cannot %s from %s to %s", e.Domain, e.Action, e.From, e.To)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// MissingFieldError names the payload field a transition requires.
type MissingFieldError struct {
	Domain Domain
	Field  Field
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s is required", e.Domain, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingRequiredField
}

// UnknownStatusError reports a status value the domain does not define.
type UnknownStatusError struct {
	Domain   Domain
	Status   Status
	RecordID RecordID
}

func (e *UnknownStatusError) Error() string {
	subject := string(e.Domain)
	if subject == "" {
		subject = "record"
	}
	if e.RecordID != "" {
		subject += " " + string(e.RecordID)
	}
	return fmt.Sprintf("%s: unknown status %q", subject, e.Status)
}

func (e *UnknownStatusError) Unwrap() error {
	return ErrUnknownStatus
}

type UnknownDomainError struct {
	Domain Domain
}

func (e *UnknownDomainError) Error() string {
	return fmt.Sprintf("unknown domain %q", e.Domain)
}

func (e *UnknownDomainError) Unwrap() error {
	return ErrUnknownDomain
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Domain Domain
	ID     RecordID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Domain, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrRecordNotFound
}

// PayloadError describes why a submission was refused.
type PayloadError struct {
	Field   string
	Message string
}

func (e *PayloadError) Error() string {
	if e.Field == "" {
		return "invalid payload: " + e.Message
	}
	return fmt.Sprintf("invalid payload: %s: %s", e.Field, e.Message)
}

func (e *PayloadError) Unwrap() error {
	return ErrInvalidPayload
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrUnknownStatus) ||
		errors.Is(err, ErrUnknownDomain) ||
		errors.Is(err, ErrUnknownGranularity) ||
		errors.Is(err, ErrInvalidPayload)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsConflict returns true if the request clashes with the record's state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}
