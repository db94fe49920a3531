package domain

import (
	"errors"
	"fmt"
)

// ValidationError: bad input from the caller (non-positive quantity/price, blank name...).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NewInvalidQuantityError is the ValidationError raised for order lines with quantity < 1.
func NewInvalidQuantityError(quantity int) error {
	return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must be at least 1, got %d", quantity)}
}

type NotFoundError struct {
	Entity string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func NewNotFoundError(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: key}
}

func NewDishNotFoundError(dishID uint) error {
	return &NotFoundError{Entity: "dish", Key: dishID}
}

// InvalidTransitionError: the requested status is not the legal successor of the current
// one, or the aggregate gate for that successor does not hold.
type InvalidTransitionError struct {
	Entity string
	From   Status
	To     Status
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "<none>"
	}
	msg := fmt.Sprintf("%s: transition from %s to %s is not allowed", e.Entity, from, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

type IllegalOrderStateError struct {
	Reference string
	Status    Status
	Operation string
}

func (e *IllegalOrderStateError) Error() string {
	return fmt.Sprintf("order %s: cannot %s while %s", e.Reference, e.Operation, e.Status)
}

type DuplicateReferenceError struct {
	Entity    string
	Reference string
}

func (e *DuplicateReferenceError) Error() string {
	entity := e.Entity
	if entity == "" {
		entity = "order"
	}
	return fmt.Sprintf("%s reference %q already exists", entity, e.Reference)
}

type InsufficientStockError struct {
	DishID     uint
	DishName   string
	Requested  int64
	Producible int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("dish %d (%s): %d requested but only %d can be produced",
		e.DishID, e.DishName, e.Requested, e.Producible)
}

// ConcurrentUpdateError: the stored order version moved while we were working on it.
type ConcurrentUpdateError struct {
	Reference string
	Version   int
}

func (e *ConcurrentUpdateError) Error() string {
	return fmt.Sprintf("order %s was modified concurrently (expected version %d)", e.Reference, e.Version)
}

// StorageError wraps any persistence failure. It is a server fault.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports state-machine and concurrency violations.
func IsConflict(err error) bool {
	var (
		it *InvalidTransitionError
		is *IllegalOrderStateError
		dr *DuplicateReferenceError
		st *InsufficientStockError
		cu *ConcurrentUpdateError
	)
	return errors.As(err, &it) || errors.As(err, &is) || errors.As(err, &dr) ||
		errors.As(err, &st) || errors.As(err, &cu)
}
