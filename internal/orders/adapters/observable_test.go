package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/dejobratic/petstore/internal/orders/adapters/memory"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracing(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestObservableRepository_RecordsSpans(t *testing.T) {
	exporter := setupTracing(t)
	repo := NewObservableRepository(memory.NewStore())

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	orders, err := repo.ListByCustomer(context.Background(), "cust-1", ports.ListFilter{})
	if err != nil {
		t.Fatalf("ListByCustomer() failed: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "OrderRepository.GetByID" || spans[0].Status.Code != codes.Error {
		t.Errorf("expected failed GetByID span, got %s (%v)", spans[0].Name, spans[0].Status.Code)
	}
	if spans[1].Name != "OrderRepository.ListByCustomer" || spans[1].Status.Code != codes.Ok {
		t.Errorf("expected successful ListByCustomer span, got %s (%v)", spans[1].Name, spans[1].Status.Code)
	}
}

type stubEventBus struct {
	err error
}

func (s stubEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	return s.err
}

func (s stubEventBus) PublishOrderStatusChanged(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return s.err
}

func TestObservableEventBus_PropagatesErrors(t *testing.T) {
	exporter := setupTracing(t)
	broker := errors.New("broker down")
	bus := NewObservableEventBus(stubEventBus{err: broker})

	if err := bus.PublishOrderStatusChanged(context.Background(), "order-1", domain.StatusShipped); !errors.Is(err, broker) {
		t.Fatalf("expected broker error, got %v", err)
	}
	if err := NewObservableEventBus(stubEventBus{}).PublishOrderPlaced(context.Background(), domain.Order{ID: "order-1"}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status on failed publish, got %v", spans[0].Status.Code)
	}
}
