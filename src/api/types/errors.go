package types

import (
	"errors"
	"fmt"
)

// Sentinel kinds; the concrete error types below wrap these so callers can
// branch with errors.Is without caring about the message.
var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrInvalidState  = errors.New("invalid state for action")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflicting update")
	ErrPersistence   = errors.New("persistence failure")
)

// ValidationError tags a rejected input with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthorizationError rejects an action the caller's role or relationship
// to the entity does not permit.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return e.Reason }

func (e *AuthorizationError) Unwrap() error { return ErrAuthorization }

func Unauthorized(reason string) error {
	return &AuthorizationError{Reason: reason}
}

// StateError rejects an action the entity's current status forbids, e.g.
// responding to a proposal that has already been answered. Distinct from
// AuthorizationError so callers can tell "wrong caller" from "too late".
type StateError struct {
	Status ProposalStatus
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a %s proposal", e.Action, e.Status)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// NotFoundError covers ids that do not resolve, including soft-removed
// proposals.
type NotFoundError struct {
	Entity string
	ID     uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a conditional update that lost a race; the caller
// may re-fetch and decide whether to retry.
type ConflictError struct {
	Entity string
	ID     uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently", e.Entity, e.ID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PersistenceError wraps an infrastructure failure from the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return ErrPersistence }

func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
