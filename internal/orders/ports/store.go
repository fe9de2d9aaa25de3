package ports

import (
	"context"

	"github.com/dejobratic/petstore/internal/orders/domain"
)

// Store opens transactional sessions against the relational store.
type Store interface {
	Begin(ctx context.Context) (Session, error)
}

// Session is one transaction. Nothing written through it is visible to other
// readers until Commit; Rollback discards every change. Rollback after Commit
// is a no-op so callers can defer it unconditionally.
type Session interface {
	Catalog() ProductCatalog
	Orders() OrderWriter
	Refunds() RefundWriter
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ProductCatalog reads and adjusts stock inside a session. GetByID locks the
// product row for the rest of the transaction.
type ProductCatalog interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, amount int) error
	IncrementStock(ctx context.Context, id string, amount int) error
}

// OrderWriter mutates orders and line items inside a session.
type OrderWriter interface {
	Create(ctx context.Context, order domain.Order) error
	AddLineItem(ctx context.Context, item domain.LineItem) error
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	UpdateLineItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteLineItem(ctx context.Context, itemID string) error
}

// RefundWriter persists refund requests and decisions inside a session.
// ListByOrder locks the returned rows and orders them by request time.
type RefundWriter interface {
	Create(ctx context.Context, refund domain.Refund) error
	GetForUpdate(ctx context.Context, id string) (*domain.Refund, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Refund, error)
	UpdateStatus(ctx context.Context, refund domain.Refund) error
}
