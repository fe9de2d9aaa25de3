package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors below report their kind through Is so callers
// can branch with errors.Is without knowing the concrete type.
var (
	ErrValidation   = errors.New("validation failed")
	ErrBusinessRule = errors.New("business rule violated")
	ErrStorage      = errors.New("storage failure")
	ErrUnexpected   = errors.New("unexpected failure")

	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ProductNotFoundError is returned when an order references an unknown product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrBusinessRule
}

// InsufficientStockError is returned when a product cannot cover the
// requested quantity.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrBusinessRule
}

// ReturnExceedsPurchaseError is returned when a return asks for more units
// than the line item holds.
type ReturnExceedsPurchaseError struct {
	ProductID string
	Purchased int
	Requested int
}

func (e *ReturnExceedsPurchaseError) Error() string {
	return fmt.Sprintf("cannot return %d of product %s: only %d purchased", e.Requested, e.ProductID, e.Purchased)
}

func (e *ReturnExceedsPurchaseError) Is(target error) bool {
	return target == ErrBusinessRule
}

// RefundPendingError is returned when a line item is frozen by an undecided
// refund: it can be neither refunded again, returned nor cancelled.
type RefundPendingError struct {
	ProductID string
	RefundID  string
}

func (e *RefundPendingError) Error() string {
	return fmt.Sprintf("product %s has pending refund %s", e.ProductID, e.RefundID)
}

func (e *RefundPendingError) Is(target error) bool {
	return target == ErrBusinessRule
}

// StatusTransitionError is returned when an operation is not allowed from the
// current order or refund state.
type StatusTransitionError struct {
	From   string
	Action string
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("cannot %s in status %s", e.Action, e.From)
}

func (e *StatusTransitionError) Is(target error) bool {
	return target == ErrBusinessRule
}

// StorageError is returned once transient storage faults have exhausted the
// retry budget. It wraps the last underlying cause.
type StorageError struct {
	Attempts int
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
