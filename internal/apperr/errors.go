// Package apperr defines the error kinds the scheduling engine surfaces to
// callers. Every operation returns one of these (possibly wrapped) so the
// HTTP layer can map them to a user-facing message and status.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input: bad time ordering, malformed
// URL, empty required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidStateError reports a transition attempted from a status that does
// not permit it.
type InvalidStateError struct {
	Op     string
	ID     string
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s has status %q", e.Op, e.ID, e.Status)
}

func InvalidState(op, id, status string) error {
	return &InvalidStateError{Op: op, ID: id, Status: status}
}

// ConflictError reports a double-booking. From ConflictChecker it is
// advisory; from the storage exclusion guard it is a refused write.
type ConflictError struct {
	TeacherID      string
	Date           string
	ConflictSlotID string
}

func (e *ConflictError) Error() string {
	if e.ConflictSlotID == "" {
		return fmt.Sprintf("teacher %s is double-booked on %s", e.TeacherID, e.Date)
	}
	return fmt.Sprintf("teacher %s already has slot %s on %s in that window", e.TeacherID, e.ConflictSlotID, e.Date)
}

// PersistenceError wraps a storage-layer failure, including transaction
// rollback during reschedule or cascading delete.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}
