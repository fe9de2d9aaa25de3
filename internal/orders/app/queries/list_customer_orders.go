package queries

import (
	"context"
	"strings"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
)

const maxPageSize = 100

type ListCustomerOrdersQuery struct {
	CustomerID string
	Status     *int
	Page       int
	PageSize   int
}

type ListCustomerOrdersQueryHandler struct {
	repo ports.OrderRepository
}

func NewListCustomerOrdersQueryHandler(repo ports.OrderRepository) *ListCustomerOrdersQueryHandler {
	return &ListCustomerOrdersQueryHandler{repo: repo}
}

// Handle lists the customer's orders newest first.
func (h *ListCustomerOrdersQueryHandler) Handle(ctx context.Context, query ListCustomerOrdersQuery) ([]domain.Order, error) {
	if strings.TrimSpace(query.CustomerID) == "" {
		return nil, &domain.ValidationError{Field: "customer_id", Reason: "is required"}
	}
	if query.Page < 0 {
		return nil, &domain.ValidationError{Field: "page", Reason: "must not be negative"}
	}
	if query.PageSize < 0 || query.PageSize > maxPageSize {
		return nil, &domain.ValidationError{Field: "page_size", Reason: "must be between 0 and 100"}
	}

	filter := ports.ListFilter{Page: query.Page, PageSize: query.PageSize}
	if query.Status != nil {
		status, err := domain.ParseOrderStatus(*query.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	return h.repo.ListByCustomer(ctx, query.CustomerID, filter)
}
