package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/metrics"
	"github.com/dejobratic/petstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservablePlaceOrderHandler struct {
	handler PlaceOrderHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservablePlaceOrderHandler(handler PlaceOrderHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservablePlaceOrderHandler {
	return &ObservablePlaceOrderHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservablePlaceOrderHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "PlaceOrderCommand.Handle",
		telemetry.KeyCustomerID.String(cmd.CustomerID),
	)
	defer span.End()

	start := time.Now()
	var resultErr error
	defer func() {
		o.metrics.RecordPlacementDuration(ctx, time.Since(start).Seconds())
		o.metrics.RecordOrderPlaced(ctx, resultErr)
	}()

	o.logger.InfoContext(ctx, "placing order",
		"customer_id", cmd.CustomerID,
		"items", len(cmd.Items),
		"total_price", cmd.TotalPrice.String(),
	)

	order, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		resultErr = err
		telemetry.Finish(span, err)
		o.logFailure(ctx, cmd, err)
		return nil, err
	}

	telemetry.Annotate(span,
		telemetry.KeyOrderID.String(order.ID),
		telemetry.KeyOrderStatus.String(order.Status.Name()),
		attribute.String("order.total_price", order.TotalPrice.String()),
		attribute.Int("order.items", len(order.Items)),
	)

	o.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"customer_id", order.CustomerID,
	)

	telemetry.Finish(span, nil)

	return order, nil
}

// logFailure logs expected rejections at warn and everything else at error.
func (o *ObservablePlaceOrderHandler) logFailure(ctx context.Context, cmd PlaceOrderCommand, err error) {
	attrs := []any{"error", err, "customer_id", cmd.CustomerID, "outcome", metrics.Outcome(err)}

	var stock *domain.InsufficientStockError
	if errors.As(err, &stock) {
		attrs = append(attrs, "product_id", stock.ProductID, "available", stock.Available, "requested", stock.Requested)
	}

	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrBusinessRule) {
		o.logger.WarnContext(ctx, "order rejected", attrs...)
		return
	}
	o.logger.ErrorContext(ctx, "failed to place order", attrs...)
}
