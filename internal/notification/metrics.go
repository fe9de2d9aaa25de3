package notification

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusDropped = "dropped"
)

type Metrics struct {
	sent metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	sent, err := meter.Int64Counter(
		"notifications_sent_total",
		metric.WithDescription("Email notifications by delivery outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create notifications counter: %w", err)
	}
	return &Metrics{sent: sent}, nil
}

func (m *Metrics) RecordNotification(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.sent.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
