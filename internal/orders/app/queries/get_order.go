package queries

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
)

// GetOrderQuery represents a request to retrieve an order by its ID. When
// CustomerID is set, only that customer's order is returned.
type GetOrderQuery struct {
	OrderID    string
	CustomerID string
}

// GetOrderQueryHandler executes GetOrderQuery and returns the order if found.
type GetOrderQueryHandler struct {
	repo ports.OrderRepository
}

// NewGetOrderQueryHandler constructs a GetOrderQueryHandler.
func NewGetOrderQueryHandler(repo ports.OrderRepository) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{repo: repo}
}

// Handle executes the query and retrieves the order with its line items.
func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	order, err := h.repo.GetByID(ctx, query.OrderID)
	if err != nil {
		return nil, err
	}

	if query.CustomerID != "" && order.CustomerID != query.CustomerID {
		return nil, fmt.Errorf("order %s: %w", order.ID, domain.ErrForbidden)
	}

	return order, nil
}

// Validate ensures the query has valid parameters.
func (q GetOrderQuery) Validate() error {
	if strings.TrimSpace(q.OrderID) == "" {
		return &domain.ValidationError{Field: "order_id", Reason: "is required"}
	}
	return nil
}
