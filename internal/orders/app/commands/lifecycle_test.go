package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dejobratic/petstore/internal/orders/adapters/memory"
	"github.com/dejobratic/petstore/internal/orders/app/commands"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/shopspring/decimal"
)

type lifecycleFixture struct {
	mem      *memory.Store
	store    *faultyStore
	events   *recordingEventBus
	notifier *recordingNotifier
	deps     commands.Dependencies
}

func newLifecycleFixture(t *testing.T, products ...domain.Product) lifecycleFixture {
	t.Helper()
	mem := newStore(products...)
	store := &faultyStore{inner: mem}
	events := &recordingEventBus{}
	notifier := &recordingNotifier{}

	return lifecycleFixture{
		mem:      mem,
		store:    store,
		events:   events,
		notifier: notifier,
		deps: commands.Dependencies{
			Store:     store,
			Orders:    mem,
			Events:    events,
			Customers: mem,
			Notifier:  notifier,
			Logger:    discardLogger(),
			Retry:     fastRetry(3),
		},
	}
}

// place commits an order for c1 through the placement command.
func (f lifecycleFixture) place(t *testing.T, items ...commands.PlaceOrderItem) *domain.Order {
	t.Helper()
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	handler := commands.NewPlaceOrderCommandHandler(f.mem, f.mem, &recordingEventBus{}, discardLogger(),
		commands.WithRetry(fastRetry(1)),
	)
	order, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{
		CustomerID: "c1",
		Items:      items,
		TotalPrice: total,
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}
	return order
}

func item(productID string, quantity int) commands.PlaceOrderItem {
	return commands.PlaceOrderItem{ProductID: productID, Quantity: quantity, PriceAtPurchase: decimal.RequireFromString("2.50")}
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("updates status and publishes change", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"))
		order := f.place(t, item("p1", 1))
		handler := commands.NewUpdateOrderStatusCommandHandler(f.deps)

		status, err := handler.Handle(context.Background(), commands.UpdateOrderStatusCommand{OrderID: order.ID, Status: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.Name() != "shipped" {
			t.Errorf("expected shipped, got %s", status.Name())
		}

		stored, _ := f.mem.GetByID(context.Background(), order.ID)
		if stored.Status != domain.StatusShipped {
			t.Errorf("expected stored status shipped, got %s", stored.Status)
		}
		if len(f.events.statusChanges) != 1 || f.events.statusChanges[0] != domain.StatusShipped {
			t.Errorf("expected one shipped event, got %v", f.events.statusChanges)
		}
	})

	t.Run("rejects out of range status and leaves order unchanged", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"))
		order := f.place(t, item("p1", 1))
		handler := commands.NewUpdateOrderStatusCommandHandler(f.deps)

		_, err := handler.Handle(context.Background(), commands.UpdateOrderStatusCommand{OrderID: order.ID, Status: 9})

		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		stored, _ := f.mem.GetByID(context.Background(), order.ID)
		if stored.Status != domain.StatusPending {
			t.Errorf("expected status to remain pending, got %s", stored.Status)
		}
		if len(f.events.statusChanges) != 0 {
			t.Error("expected no events")
		}
	})

	t.Run("missing order", func(t *testing.T) {
		f := newLifecycleFixture(t)
		handler := commands.NewUpdateOrderStatusCommandHandler(f.deps)

		_, err := handler.Handle(context.Background(), commands.UpdateOrderStatusCommand{OrderID: "missing", Status: 1})
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("cancels pending order and restores stock", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"), product("p2", 5, "2.50"))
		order := f.place(t, item("p1", 3), item("p2", 2))
		handler := commands.NewCancelOrderCommandHandler(f.deps)

		cancelled, err := handler.Handle(context.Background(), commands.CancelOrderCommand{OrderID: order.ID, CustomerID: "c1"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cancelled.Status != domain.StatusCancelled {
			t.Errorf("expected cancelled, got %s", cancelled.Status)
		}
		if stock(f.mem, "p1") != 10 || stock(f.mem, "p2") != 5 {
			t.Errorf("expected stock restored to 10/5, got %d/%d", stock(f.mem, "p1"), stock(f.mem, "p2"))
		}
		if len(f.events.statusChanges) != 1 || f.events.statusChanges[0] != domain.StatusCancelled {
			t.Errorf("expected cancelled event, got %v", f.events.statusChanges)
		}
	})

	t.Run("rejects cancelling a shipped order", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"))
		order := f.place(t, item("p1", 3))
		if err := f.mem.UpdateStatus(context.Background(), order.ID, domain.StatusShipped); err != nil {
			t.Fatalf("failed to set status: %v", err)
		}
		handler := commands.NewCancelOrderCommandHandler(f.deps)

		_, err := handler.Handle(context.Background(), commands.CancelOrderCommand{OrderID: order.ID, CustomerID: "c1"})

		var transition *domain.StatusTransitionError
		if !errors.As(err, &transition) || transition.From != "shipped" {
			t.Fatalf("expected StatusTransitionError from shipped, got %v", err)
		}
		if stock(f.mem, "p1") != 7 {
			t.Errorf("expected stock to stay at 7, got %d", stock(f.mem, "p1"))
		}
	})

	t.Run("rejects other customers", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"))
		order := f.place(t, item("p1", 1))
		handler := commands.NewCancelOrderCommandHandler(f.deps)

		_, err := handler.Handle(context.Background(), commands.CancelOrderCommand{OrderID: order.ID, CustomerID: "c2"})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("retries transient commit failure", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"))
		order := f.place(t, item("p1", 4))
		f.store.fault = transientOn("commit", 1)
		handler := commands.NewCancelOrderCommandHandler(f.deps)

		if _, err := handler.Handle(context.Background(), commands.CancelOrderCommand{OrderID: order.ID}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if f.store.begins != 2 {
			t.Errorf("expected 2 attempts, got %d", f.store.begins)
		}
		if stock(f.mem, "p1") != 10 {
			t.Errorf("expected stock restored exactly once to 10, got %d", stock(f.mem, "p1"))
		}
	})
}

func TestReturnItem(t *testing.T) {
	t.Run("shrinks line item and restores stock", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"))
		order := f.place(t, item("p1", 3))
		handler := commands.NewReturnItemCommandHandler(f.deps)

		updated, err := handler.Handle(context.Background(), commands.ReturnItemCommand{
			OrderID: order.ID, CustomerID: "c1", ProductID: "p1", Quantity: 1,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(updated.Items) != 1 || updated.Items[0].Quantity != 2 {
			t.Errorf("expected line item quantity 2, got %+v", updated.Items)
		}
		if stock(f.mem, "p1") != 8 {
			t.Errorf("expected stock 8, got %d", stock(f.mem, "p1"))
		}
		if updated.Status != domain.StatusPending {
			t.Errorf("expected status to stay pending, got %s", updated.Status)
		}
	})

	t.Run("removes fully returned item and marks order returned", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"))
		order := f.place(t, item("p1", 3))
		handler := commands.NewReturnItemCommandHandler(f.deps)

		updated, err := handler.Handle(context.Background(), commands.ReturnItemCommand{
			OrderID: order.ID, ProductID: "p1", Quantity: 3,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(updated.Items) != 0 || updated.Status != domain.StatusReturned {
			t.Errorf("expected empty returned order, got %+v", updated)
		}

		stored, _ := f.mem.GetByID(context.Background(), order.ID)
		if len(stored.Items) != 0 || stored.Status != domain.StatusReturned {
			t.Errorf("expected stored order returned with no items, got %+v", stored)
		}
		if stock(f.mem, "p1") != 10 {
			t.Errorf("expected stock 10, got %d", stock(f.mem, "p1"))
		}
	})

	t.Run("keeps order open while other items remain", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"), product("p2", 10, "2.50"))
		order := f.place(t, item("p1", 1), item("p2", 1))
		handler := commands.NewReturnItemCommandHandler(f.deps)

		updated, err := handler.Handle(context.Background(), commands.ReturnItemCommand{
			OrderID: order.ID, ProductID: "p1", Quantity: 1,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(updated.Items) != 1 || updated.Items[0].ProductID != "p2" || updated.Status == domain.StatusReturned {
			t.Errorf("expected only p2 left and order not returned, got %+v", updated)
		}
	})

	t.Run("rejects returning more than purchased", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"))
		order := f.place(t, item("p1", 2))
		handler := commands.NewReturnItemCommandHandler(f.deps)

		_, err := handler.Handle(context.Background(), commands.ReturnItemCommand{
			OrderID: order.ID, ProductID: "p1", Quantity: 5,
		})

		var exceeds *domain.ReturnExceedsPurchaseError
		if !errors.As(err, &exceeds) || exceeds.Purchased != 2 || exceeds.Requested != 5 {
			t.Fatalf("expected ReturnExceedsPurchaseError 2 vs 5, got %v", err)
		}
		if stock(f.mem, "p1") != 8 {
			t.Errorf("expected stock unchanged at 8, got %d", stock(f.mem, "p1"))
		}
	})

	t.Run("validation and missing item", func(t *testing.T) {
		f := newLifecycleFixture(t, product("p1", 10, "2.50"))
		order := f.place(t, item("p1", 2))
		handler := commands.NewReturnItemCommandHandler(f.deps)

		_, err := handler.Handle(context.Background(), commands.ReturnItemCommand{OrderID: order.ID, ProductID: "p1", Quantity: 0})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}

		_, err = handler.Handle(context.Background(), commands.ReturnItemCommand{OrderID: order.ID, ProductID: "p9", Quantity: 1})
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
