package database

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records query latency and transient failures per store operation.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	queryDuration   metric.Float64Histogram
	transientErrors metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_duration histogram: %w", err)
	}

	m.transientErrors, err = meter.Int64Counter(
		"db_transient_errors_total",
		metric.WithDescription("Database errors classified as transient"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_transient_errors counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordQuery(ctx context.Context, operation string, start time.Time, err error) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.queryDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	if IsTransient(err) {
		m.transientErrors.Add(ctx, 1, attrs)
	}
}
