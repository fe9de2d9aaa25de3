package memory

import (
	"context"
	"sort"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
)

// Begin starts a serialized session over a private copy of the store.
func (s *Store) Begin(ctx context.Context) (ports.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.txMu.Lock()

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	return &session{store: s, work: work}, nil
}

type session struct {
	store *Store
	work  *snapshot
	done  bool
}

func (s *session) Catalog() ports.ProductCatalog { return catalog{s} }
func (s *session) Orders() ports.OrderWriter     { return orderWriter{s} }
func (s *session) Refunds() ports.RefundWriter   { return refundWriter{s} }

func (s *session) Commit(_ context.Context) error {
	if s.done {
		return nil
	}
	s.done = true

	s.store.mu.Lock()
	s.store.data = s.work
	s.store.mu.Unlock()

	s.store.txMu.Unlock()
	return nil
}

func (s *session) Rollback(_ context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	s.work = nil
	s.store.txMu.Unlock()
	return nil
}

type catalog struct{ s *session }

func (c catalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	product, ok := c.s.work.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &product, nil
}

func (c catalog) DecrementStock(_ context.Context, id string, amount int) error {
	product, ok := c.s.work.products[id]
	if !ok {
		return ports.ErrNotFound
	}
	if product.Quantity < amount {
		return ports.ErrInsufficientStock
	}
	product.Quantity -= amount
	c.s.work.products[id] = product
	return nil
}

func (c catalog) IncrementStock(_ context.Context, id string, amount int) error {
	product, ok := c.s.work.products[id]
	if !ok {
		return ports.ErrNotFound
	}
	product.Quantity += amount
	c.s.work.products[id] = product
	return nil
}

type orderWriter struct{ s *session }

func (w orderWriter) Create(_ context.Context, order domain.Order) error {
	order = copyOrder(order)
	order.Items = order.Items[:0]
	w.s.work.orders[order.ID] = order
	return nil
}

func (w orderWriter) AddLineItem(_ context.Context, item domain.LineItem) error {
	order, ok := w.s.work.orders[item.OrderID]
	if !ok {
		return ports.ErrNotFound
	}
	order.Items = append(order.Items, item)
	w.s.work.orders[item.OrderID] = order
	return nil
}

func (w orderWriter) GetForUpdate(_ context.Context, id string) (*domain.Order, error) {
	order, ok := w.s.work.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := copyOrder(order)
	return &copied, nil
}

func (w orderWriter) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) error {
	order, ok := w.s.work.orders[id]
	if !ok {
		return ports.ErrNotFound
	}
	order.Status = status
	w.s.work.orders[id] = order
	return nil
}

func (w orderWriter) UpdateLineItemQuantity(_ context.Context, itemID string, quantity int) error {
	return w.mutateItem(itemID, func(items []domain.LineItem, i int) []domain.LineItem {
		items[i].Quantity = quantity
		return items
	})
}

func (w orderWriter) DeleteLineItem(_ context.Context, itemID string) error {
	return w.mutateItem(itemID, func(items []domain.LineItem, i int) []domain.LineItem {
		return append(items[:i], items[i+1:]...)
	})
}

func (w orderWriter) mutateItem(itemID string, fn func(items []domain.LineItem, i int) []domain.LineItem) error {
	for id, order := range w.s.work.orders {
		for i, item := range order.Items {
			if item.ID == itemID {
				order.Items = fn(order.Items, i)
				w.s.work.orders[id] = order
				return nil
			}
		}
	}
	return ports.ErrNotFound
}

type refundWriter struct{ s *session }

func (w refundWriter) Create(_ context.Context, refund domain.Refund) error {
	w.s.work.refunds[refund.ID] = refund
	return nil
}

func (w refundWriter) GetForUpdate(_ context.Context, id string) (*domain.Refund, error) {
	refund, ok := w.s.work.refunds[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &refund, nil
}

func (w refundWriter) ListByOrder(_ context.Context, orderID string) ([]domain.Refund, error) {
	var refunds []domain.Refund
	for _, refund := range w.s.work.refunds {
		if refund.OrderID == orderID {
			refunds = append(refunds, refund)
		}
	}
	sort.Slice(refunds, func(i, j int) bool {
		if !refunds[i].RequestedAt.Equal(refunds[j].RequestedAt) {
			return refunds[i].RequestedAt.Before(refunds[j].RequestedAt)
		}
		return refunds[i].ID < refunds[j].ID
	})
	return refunds, nil
}

func (w refundWriter) UpdateStatus(_ context.Context, refund domain.Refund) error {
	if _, ok := w.s.work.refunds[refund.ID]; !ok {
		return ports.ErrNotFound
	}
	w.s.work.refunds[refund.ID] = refund
	return nil
}
