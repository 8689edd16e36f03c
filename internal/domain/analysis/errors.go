package analysis

import (
	"errors"
	"fmt"
)

const (
	ReasonTargetRequired  = "targetObject required for object detection"
	ReasonUnsupportedType = "unsupported analysis type"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("analysis validation failed")
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("analysis persistence failed")
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("analysis not found")
	// ErrAlreadyPersisted is wrapped by Save when the record already has an ID.
	ErrAlreadyPersisted = errors.New("record already persisted")
)

// ValidationError is caller-fixable and raised before any generation or persistence.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PersistenceError wraps a failed storage operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist analysis: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// NotFoundError is returned by lookups only.
type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("analysis %d not found", e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
