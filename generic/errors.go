/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Services return these instead of panicking for expected conditions, so a
  caller always receives a structured outcome.

ERROR CATEGORIES:
  1. NotFound       - unknown category, unknown tenant-scoped record
  2. Validation     - duplicate code, custom value on a closed category, bad ids
  3. Infrastructure - store unreachable, scan/serialization failure

  Store implementations return ErrDuplicate on a unique-index violation.
  Services translate it into a ValidationError (or retry, for upserts).

USAGE:
  if generic.IsNotFound(err) {
      // 404
  }
  var verr *generic.ValidationError
  if errors.As(err, &verr) {
      // 400 with verr.Message
  }

SEE ALSO:
  - lookup/service.go: Translates ErrDuplicate, retries override upserts
  - api/handlers.go: Maps the taxonomy onto HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record doesn't exist for the tenant.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for expected, recoverable input problems.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicate is returned by stores when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate key")

	// ErrInfrastructure marks failures of the store or other collaborators.
	ErrInfrastructure = errors.New("infrastructure failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names what was looked up.
type NotFoundError struct {
	Kind string // e.g. "lookup_category", "assignment"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// ValidationError carries a human-readable message for one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation builds a ValidationError.
func NewValidation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InfrastructureError wraps an unexpected failure with the operation name.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *InfrastructureError) Unwrap() []error {
	return []error{ErrInfrastructure, e.Err}
}

// Infrastructure wraps err unless it is already part of the taxonomy.
// Returns nil for a nil err.
func Infrastructure(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsClientError(err) || errors.Is(err, ErrInfrastructure) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

// =============================================================================
// OPERATION BOUNDARY
// =============================================================================

// Recover converts a panic inside a public operation into an infrastructure
// error so the caller still gets a structured outcome. Use as:
//
//	defer generic.Recover("reports.compliance", &err)
func Recover(op string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	perr := fmt.Errorf("panic: %v", r)
	log.Error().Str("op", op).Err(perr).Msg("Recovered from panic")
	*errp = &InfrastructureError{Op: op, Err: perr}
}

// LogFailure logs infrastructure errors with their operation context.
// Expected conditions (not found, validation) are not logged.
func LogFailure(op string, tenant TenantID, err error) {
	if err == nil || IsNotFound(err) || IsClientError(err) {
		return
	}
	log.Error().Str("op", op).Str("tenant", string(tenant)).Err(err).Msg("Operation failed")
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDuplicate returns true for unique-constraint violations from a store.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
