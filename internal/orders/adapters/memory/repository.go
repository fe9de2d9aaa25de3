package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
)

// Store is an in-memory implementation of ports.Store, ports.OrderRepository
// and ports.CustomerDirectory, useful for local development and tests.
//
// Sessions are serialized: Begin blocks until the previous session commits or
// rolls back, and each session works on a private copy that Commit swaps in.
type Store struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	data      *snapshot
	customers map[string]domain.Customer
}

type snapshot struct {
	products map[string]domain.Product
	orders   map[string]domain.Order
	refunds  map[string]domain.Refund
}

func newSnapshot() *snapshot {
	return &snapshot{
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
		refunds:  make(map[string]domain.Refund),
	}
}

func (s *snapshot) clone() *snapshot {
	c := newSnapshot()
	for id, product := range s.products {
		c.products[id] = product
	}
	for id, order := range s.orders {
		c.orders[id] = copyOrder(order)
	}
	for id, refund := range s.refunds {
		c.refunds[id] = refund
	}
	return c
}

func copyOrder(order domain.Order) domain.Order {
	items := make([]domain.LineItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		data:      newSnapshot(),
		customers: make(map[string]domain.Customer),
	}
}

// SeedProducts inserts or replaces catalog entries.
func (s *Store) SeedProducts(products ...domain.Product) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, product := range products {
		s.data.products[product.ID] = product
	}
}

// SeedCustomers inserts or replaces customers.
func (s *Store) SeedCustomers(customers ...domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, customer := range customers {
		s.customers[customer.ID] = customer
	}
}

// Product returns the committed state of a product.
func (s *Store) Product(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.data.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &product, nil
}

// OrderCount returns the number of committed orders.
func (s *Store) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.orders)
}

// GetByID fetches a single order with its line items.
func (s *Store) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.data.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := copyOrder(order)
	return &copied, nil
}

// ListByCustomer returns the customer's orders newest first. Pagination is 1-based.
func (s *Store) ListByCustomer(_ context.Context, customerID string, filter ports.ListFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Order
	for _, order := range s.data.orders {
		if order.CustomerID != customerID {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		result = append(result, copyOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].OrderDate.Equal(result[j].OrderDate) {
			return result[i].ID < result[j].ID
		}
		return result[i].OrderDate.After(result[j].OrderDate)
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.Order{}, nil
	}

	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// UpdateStatus sets the status of a committed order.
func (s *Store) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.data.orders[id]
	if !ok {
		return ports.ErrNotFound
	}

	order.Status = status
	s.data.orders[id] = order
	return nil
}

// GetCustomer resolves a seeded customer.
func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &customer, nil
}
