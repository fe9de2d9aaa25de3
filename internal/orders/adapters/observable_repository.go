package adapters

import (
	"context"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/dejobratic/petstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableRepository wraps an OrderRepository with tracing spans. Query
// latency is recorded by the storage adapter itself.
type ObservableRepository struct {
	repo ports.OrderRepository
}

func NewObservableRepository(repo ports.OrderRepository) *ObservableRepository {
	return &ObservableRepository{repo: repo}
}

func (r *ObservableRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.GetByID",
		telemetry.KeyOperation.String("get_by_id"),
		telemetry.KeyOrderID.String(id),
	)
	defer span.End()

	order, err := r.repo.GetByID(ctx, id)
	if err == nil {
		telemetry.Annotate(span,
			telemetry.KeyCustomerID.String(order.CustomerID),
			telemetry.KeyOrderStatus.String(order.Status.Name()),
		)
	}
	telemetry.Finish(span, err)
	return order, err
}

func (r *ObservableRepository) ListByCustomer(ctx context.Context, customerID string, filter ports.ListFilter) ([]domain.Order, error) {
	attrs := []attribute.KeyValue{
		telemetry.KeyOperation.String("list_by_customer"),
		telemetry.KeyCustomerID.String(customerID),
		attribute.Int("page", filter.Page),
		attribute.Int("page_size", filter.PageSize),
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", filter.Status.Name()))
	}
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.ListByCustomer", attrs...)
	defer span.End()

	orders, err := r.repo.ListByCustomer(ctx, customerID, filter)
	if err == nil {
		telemetry.Annotate(span, attribute.Int("result.count", len(orders)))
	}
	telemetry.Finish(span, err)
	return orders, err
}

func (r *ObservableRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.UpdateStatus",
		telemetry.KeyOperation.String("update_status"),
		telemetry.KeyOrderID.String(id),
		telemetry.KeyOrderStatus.String(status.Name()),
	)
	defer span.End()

	err := r.repo.UpdateStatus(ctx, id, status)
	telemetry.Finish(span, err)
	return err
}
