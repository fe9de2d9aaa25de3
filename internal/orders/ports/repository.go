package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/petstore/internal/orders/domain"
)

var (
	// ErrNotFound is returned when the requested order, line item or refund does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransient marks storage failures that are expected to succeed on retry
	// (connection loss, deadlock, serialization failure). Adapters wrap driver
	// errors with it; the application never inspects driver types directly.
	ErrTransient = errors.New("transient storage failure")

	// ErrInsufficientStock is returned by ProductCatalog.DecrementStock when the
	// guarded update would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// OrderRepository exposes non-transactional reads and single-row updates.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, filter ListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// ListFilter narrows list queries by status and pagination.
type ListFilter struct {
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

// CustomerDirectory resolves customer contact details.
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
}
