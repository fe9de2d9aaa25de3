package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	if metrics.queryDuration == nil {
		t.Error("queryDuration is nil")
	}
	if metrics.transientErrors == nil {
		t.Error("transientErrors is nil")
	}
}

func TestRecordQuery(t *testing.T) {
	t.Run("records duration per operation and counts transient failures", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		metrics, err := NewMetrics(mp.Meter("test"))
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		ctx := context.Background()
		start := time.Now()

		metrics.RecordQuery(ctx, "insert_order", start, nil)
		metrics.RecordQuery(ctx, "decrement_stock", start, &pgconn.PgError{Code: "40P01"})
		metrics.RecordQuery(ctx, "decrement_stock", start, errors.New("syntax error"))

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			t.Fatalf("Failed to collect metrics: %v", err)
		}

		var histogramPoints int
		var transient int64
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch m.Name {
				case "db_query_duration_seconds":
					histogram, ok := m.Data.(metricdata.Histogram[float64])
					if !ok {
						t.Fatal("Expected Histogram[float64] data type")
					}
					histogramPoints = len(histogram.DataPoints)
				case "db_transient_errors_total":
					sum, ok := m.Data.(metricdata.Sum[int64])
					if !ok {
						t.Fatal("Expected Sum[int64] data type")
					}
					for _, dp := range sum.DataPoints {
						transient += dp.Value
					}
				}
			}
		}

		if histogramPoints != 2 {
			t.Errorf("Expected 2 histogram data points (one per operation), got %d", histogramPoints)
		}
		if transient != 1 {
			t.Errorf("Expected 1 transient error, got %d", transient)
		}
	})

	t.Run("nil metrics is a no-op", func(t *testing.T) {
		var metrics *Metrics
		metrics.RecordQuery(context.Background(), "noop", time.Now(), nil)
	})
}
