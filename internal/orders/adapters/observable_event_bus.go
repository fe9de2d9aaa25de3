package adapters

import (
	"context"

	"github.com/dejobratic/petstore/internal/kafka"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/dejobratic/petstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus ports.EventBus
}

func NewObservableEventBus(bus ports.EventBus) *ObservableEventBus {
	return &ObservableEventBus{bus: bus}
}

func (e *ObservableEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderPlaced",
		telemetry.KeyEventType.String(kafka.EventOrderPlaced),
		telemetry.KeyOrderID.String(order.ID),
		telemetry.KeyCustomerID.String(order.CustomerID),
		attribute.Int("order.items", len(order.Items)),
	)
	defer span.End()

	err := e.bus.PublishOrderPlaced(ctx, order)
	telemetry.Finish(span, err)
	return err
}

func (e *ObservableEventBus) PublishOrderStatusChanged(ctx context.Context, orderID string, status domain.OrderStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderStatusChanged",
		telemetry.KeyEventType.String(kafka.EventOrderStatusChanged),
		telemetry.KeyOrderID.String(orderID),
		telemetry.KeyOrderStatus.String(status.Name()),
	)
	defer span.End()

	err := e.bus.PublishOrderStatusChanged(ctx, orderID, status)
	telemetry.Finish(span, err)
	return err
}
