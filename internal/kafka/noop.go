package kafka

import (
	"context"
	"log/slog"

	"github.com/dejobratic/petstore/internal/orders/domain"
)

// NoopEventBus logs events without sending them to Kafka. Used when no
// brokers are configured.
type NoopEventBus struct {
	logger *slog.Logger
}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus(logger *slog.Logger) *NoopEventBus {
	return &NoopEventBus{logger: logger}
}

func (n *NoopEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	n.logger.DebugContext(ctx, "event::order_placed", "order_id", order.ID, "items", len(order.Items))
	return nil
}

func (n *NoopEventBus) PublishOrderStatusChanged(ctx context.Context, orderID string, status domain.OrderStatus) error {
	n.logger.DebugContext(ctx, "event::order_status_changed", "order_id", orderID, "status", status.Name())
	return nil
}

func (n *NoopEventBus) Close() error {
	return nil
}
