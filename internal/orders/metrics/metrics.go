package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	ordersPlacedTotal      metric.Int64Counter
	orderPlacementDuration metric.Float64Histogram
	orderPlacementAttempts metric.Int64Histogram
	orderTransitionsTotal  metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersPlacedTotal, err = meter.Int64Counter(
		"orders_placed_total",
		metric.WithDescription("Total number of order placement requests by outcome"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_placed_total counter: %w", err)
	}

	m.orderPlacementDuration, err = meter.Float64Histogram(
		"order_placement_duration_seconds",
		metric.WithDescription("Duration of order placement including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_placement_duration histogram: %w", err)
	}

	m.orderPlacementAttempts, err = meter.Int64Histogram(
		"order_placement_attempts",
		metric.WithDescription("Transaction attempts needed per order placement"),
		metric.WithUnit("{attempt}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_placement_attempts histogram: %w", err)
	}

	m.orderTransitionsTotal, err = meter.Int64Counter(
		"order_transitions_total",
		metric.WithDescription("Order lifecycle operations (status update, cancel, return, refund) by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_transitions_total counter: %w", err)
	}

	return m, nil
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrBusinessRule):
		return "business_rule"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	default:
		return "error"
	}
}

func (m *Metrics) RecordOrderPlaced(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.ordersPlacedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", Outcome(err)),
	))
}

func (m *Metrics) RecordPlacementDuration(ctx context.Context, durationSeconds float64) {
	if m == nil {
		return
	}
	m.orderPlacementDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordPlacementAttempts(ctx context.Context, attempts int) {
	if m == nil || attempts <= 0 {
		return
	}
	m.orderPlacementAttempts.Record(ctx, int64(attempts))
}

func (m *Metrics) RecordTransition(ctx context.Context, action string, err error) {
	if m == nil {
		return
	}
	m.orderTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", Outcome(err)),
	))
}
