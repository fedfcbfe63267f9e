/*
errors.go - Centralized error types for the salary engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every failure a caller can see falls into one of three classes:

    ValidationError  client-side input problem, caught before any network call
                     (reason too short, negative amount, period not selectable)
    ConflictError    the collaborator refused the operation
                     (duplicate period, illegal state transition, no rate config)
    NetworkError     the collaborator could not be reached; retryable

  None of them is fatal to a session.

USAGE:

    if errors.Is(err, generic.ErrDuplicatePeriod) { ... }

    var verr *generic.ValidationError
    if errors.As(err, &verr) {
        msg := verr.Field("reason")
    }

SEE ALSO:
  - salary/validation.go: builds ValidationErrors
  - client/client.go: maps HTTP responses onto these types
  - orchestrator/feedback.go: turns them into user-facing feedback
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the parent of every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPeriod is returned when a period is malformed (month outside 1-12,
	// bounds that are not a calendar month).
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrDuplicatePeriod is returned when a calculation already exists for the
	// teacher and month.
	ErrDuplicatePeriod = errors.New("calculation already exists for period")

	// ErrInvalidState is returned for a transition not allowed from the current status.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrNoRateConfig is returned when the teacher has no rate card to compute with.
	ErrNoRateConfig = errors.New("no rate configuration")

	// ErrNotFound is returned when a teacher or calculation doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrNetwork is the parent of every *NetworkError.
	ErrNetwork = errors.New("network error")
)

// Error codes shared by the HTTP API and the client.
const (
	CodeValidation      = "VALIDATION"
	CodeDuplicatePeriod = "DUPLICATE_PERIOD"
	CodeInvalidState    = "INVALID_STATE"
	CodeNoRateConfig    = "NO_RATE_CONFIG"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL"
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError is a problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports one or more invalid input fields.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Field returns the message for a field, or "" when the field is valid.
func (e *ValidationError) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

// ConflictError is a refusal by the collaborator. Code is one of the Code* constants.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return strings.ToLower(e.Code)
	}
	return fmt.Sprintf("%s: %s", strings.ToLower(e.Code), e.Message)
}

func (e *ConflictError) Unwrap() error {
	switch e.Code {
	case CodeDuplicatePeriod:
		return ErrDuplicatePeriod
	case CodeInvalidState:
		return ErrInvalidState
	case CodeNoRateConfig:
		return ErrNoRateConfig
	}
	return nil
}

// NewConflict builds a ConflictError with a formatted message.
func NewConflict(code, format string, args ...any) *ConflictError {
	return &ConflictError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NetworkError wraps a transport failure for operation Op.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// Kind classifies an error for presentation.
type Kind string

const (
	KindNone       Kind = ""
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network"
	KindInternal   Kind = "internal"
)

// KindOf returns the class an error belongs to.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var conflict *ConflictError
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidPeriod):
		return KindValidation
	case errors.As(err, &conflict),
		errors.Is(err, ErrDuplicatePeriod),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrNoRateConfig):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	}
	return KindInternal
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsClientError returns true if the error is due to invalid client input or
// a rule the collaborator enforces.
func IsClientError(err error) bool {
	k := KindOf(err)
	return k == KindValidation || k == KindConflict
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
