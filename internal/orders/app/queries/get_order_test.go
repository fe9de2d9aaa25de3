package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/petstore/internal/orders/adapters/memory"
	"github.com/dejobratic/petstore/internal/orders/app/queries"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/shopspring/decimal"
)

func seedOrders(t *testing.T, orders ...domain.Order) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	session, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	for _, order := range orders {
		if err := session.Orders().Create(ctx, order); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		for _, item := range order.Items {
			if err := session.Orders().AddLineItem(ctx, item); err != nil {
				t.Fatalf("AddLineItem() failed: %v", err)
			}
		}
	}
	if err := session.Commit(ctx); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return store
}

func testOrder(id, customerID string, date time.Time, status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:         id,
		CustomerID: customerID,
		OrderDate:  date,
		Status:     status,
		TotalPrice: decimal.NewFromInt(3),
		Items: []domain.LineItem{
			{ID: id + "-1", OrderID: id, ProductID: "p1", Quantity: 3, PriceAtPurchase: decimal.NewFromInt(1)},
		},
	}
}

func TestGetOrder(t *testing.T) {
	store := seedOrders(t, testOrder("order-1", "c1", time.Now().UTC(), domain.StatusPending))
	handler := queries.NewGetOrderQueryHandler(store)
	ctx := context.Background()

	t.Run("returns order with line items", func(t *testing.T) {
		order, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "order-1"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if order.ID != "order-1" || len(order.Items) != 1 {
			t.Errorf("unexpected order %+v", order)
		}
	})

	t.Run("owner check", func(t *testing.T) {
		if _, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "order-1", CustomerID: "c1"}); err != nil {
			t.Errorf("expected owner to read order, got %v", err)
		}
		if _, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "order-1", CustomerID: "c2"}); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "missing"})
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "  "})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestListCustomerOrders(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := seedOrders(t,
		testOrder("order-1", "c1", base, domain.StatusDelivered),
		testOrder("order-2", "c1", base.Add(time.Hour), domain.StatusPending),
		testOrder("order-3", "c2", base, domain.StatusPending),
	)
	handler := queries.NewListCustomerOrdersQueryHandler(store)
	ctx := context.Background()

	t.Run("lists only the customer's orders newest first", func(t *testing.T) {
		orders, err := handler.Handle(ctx, queries.ListCustomerOrdersQuery{CustomerID: "c1"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(orders) != 2 || orders[0].ID != "order-2" {
			t.Errorf("unexpected orders %+v", orders)
		}
	})

	t.Run("filters by status", func(t *testing.T) {
		status := int(domain.StatusDelivered)
		orders, err := handler.Handle(ctx, queries.ListCustomerOrdersQuery{CustomerID: "c1", Status: &status})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(orders) != 1 || orders[0].ID != "order-1" {
			t.Errorf("unexpected orders %+v", orders)
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		badStatus := 7
		tests := []queries.ListCustomerOrdersQuery{
			{CustomerID: ""},
			{CustomerID: "c1", Status: &badStatus},
			{CustomerID: "c1", PageSize: 500},
			{CustomerID: "c1", Page: -1},
		}
		for _, query := range tests {
			if _, err := handler.Handle(ctx, query); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error for %+v, got %v", query, err)
			}
		}
	})
}
