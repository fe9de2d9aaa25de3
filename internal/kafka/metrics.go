package kafka

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics tracks order event publishing.
type Metrics struct {
	publishLatency metric.Float64Histogram
	eventsTotal    metric.Int64Counter
	payloadBytes   metric.Int64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.publishLatency, err = meter.Float64Histogram(
		"order_events_publish_duration_seconds",
		metric.WithDescription("Time to hand an order event to the Kafka brokers"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_events_publish_duration histogram: %w", err)
	}

	m.eventsTotal, err = meter.Int64Counter(
		"order_events_published_total",
		metric.WithDescription("Order events published, by event type and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_events_published counter: %w", err)
	}

	m.payloadBytes, err = meter.Int64Histogram(
		"order_events_payload_bytes",
		metric.WithDescription("Encoded size of order events"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_events_payload_bytes histogram: %w", err)
	}

	return m, nil
}

// RecordPublish records one write attempt. A nil receiver is a no-op.
func (m *Metrics) RecordPublish(ctx context.Context, topic, eventType string, size int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "published"
	if err != nil {
		outcome = "failed"
	}

	m.publishLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("outcome", outcome),
	))
	m.eventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	))
	if err == nil {
		m.payloadBytes.Record(ctx, int64(size), metric.WithAttributes(attribute.String("event_type", eventType)))
	}
}
