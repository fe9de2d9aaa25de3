package commands_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/dejobratic/petstore/internal/orders/adapters/memory"
	"github.com/dejobratic/petstore/internal/orders/app/commands"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/shopspring/decimal"
)

var errConnReset = fmt.Errorf("connection reset: %w", ports.ErrTransient)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry(maxAttempts int) commands.RetryConfig {
	return commands.RetryConfig{
		MaxAttempts: maxAttempts,
		NewBackOff:  func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
}

func newStore(products ...domain.Product) *memory.Store {
	store := memory.NewStore()
	store.SeedProducts(products...)
	store.SeedCustomers(domain.Customer{ID: "c1", Email: "ada@example.com", Name: "Ada"})
	return store
}

func product(id string, quantity int, price string) domain.Product {
	return domain.Product{ID: id, Name: id, Quantity: quantity, Price: decimal.RequireFromString(price)}
}

func stock(store *memory.Store, id string) int {
	p, err := store.Product(context.Background(), id)
	if err != nil {
		return -1
	}
	return p.Quantity
}

// faultyStore wraps a store and lets a test fail individual steps of a
// session. fault is consulted with the step name and the 1-based attempt.
type faultyStore struct {
	inner  ports.Store
	begins int
	steps  []string
	fault  func(step string, attempt int) error
}

func (s *faultyStore) inject(step string) error {
	s.steps = append(s.steps, step)
	if s.fault == nil {
		return nil
	}
	return s.fault(step, s.begins)
}

func (s *faultyStore) Begin(ctx context.Context) (ports.Session, error) {
	s.begins++
	if err := s.inject("begin"); err != nil {
		return nil, err
	}
	session, err := s.inner.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultySession{Session: session, store: s}, nil
}

type faultySession struct {
	ports.Session
	store *faultyStore
}

func (s *faultySession) Catalog() ports.ProductCatalog {
	return &faultyCatalog{ProductCatalog: s.Session.Catalog(), store: s.store}
}

func (s *faultySession) Orders() ports.OrderWriter {
	return &faultyOrders{OrderWriter: s.Session.Orders(), store: s.store}
}

func (s *faultySession) Commit(ctx context.Context) error {
	if err := s.store.inject("commit"); err != nil {
		return err
	}
	return s.Session.Commit(ctx)
}

type faultyCatalog struct {
	ports.ProductCatalog
	store *faultyStore
}

func (c *faultyCatalog) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if err := c.store.inject("get_product"); err != nil {
		return nil, err
	}
	return c.ProductCatalog.GetByID(ctx, id)
}

func (c *faultyCatalog) DecrementStock(ctx context.Context, id string, amount int) error {
	if err := c.store.inject("decrement_stock"); err != nil {
		return err
	}
	return c.ProductCatalog.DecrementStock(ctx, id, amount)
}

type faultyOrders struct {
	ports.OrderWriter
	store *faultyStore
}

func (o *faultyOrders) Create(ctx context.Context, order domain.Order) error {
	if err := o.store.inject("create_order"); err != nil {
		return err
	}
	return o.OrderWriter.Create(ctx, order)
}

func (o *faultyOrders) AddLineItem(ctx context.Context, item domain.LineItem) error {
	if err := o.store.inject("add_line_item"); err != nil {
		return err
	}
	return o.OrderWriter.AddLineItem(ctx, item)
}

type failingRepository struct {
	ports.OrderRepository
	err error
}

func (r *failingRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return nil, r.err
}

type recordingEventBus struct {
	mu            sync.Mutex
	placed        []domain.Order
	statusChanges []domain.OrderStatus
	err           error
}

func (b *recordingEventBus) PublishOrderPlaced(_ context.Context, order domain.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.placed = append(b.placed, order)
	return b.err
}

func (b *recordingEventBus) PublishOrderStatusChanged(_ context.Context, _ string, status domain.OrderStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusChanges = append(b.statusChanges, status)
	return b.err
}

type sentEmail struct {
	to, subject, body string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (n *recordingNotifier) Notify(_ context.Context, to, subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{to: to, subject: subject, body: body})
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func transientOn(step string, failingAttempts ...int) func(string, int) error {
	return func(s string, attempt int) error {
		if s != step {
			return nil
		}
		for _, a := range failingAttempts {
			if a == attempt {
				return errConnReset
			}
		}
		return nil
	}
}
