package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dejobratic/petstore/internal/discounts"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
)

// ProductSource reads products from the catalog that owns them.
type ProductSource interface {
	Product(ctx context.Context, id string) (*domain.Product, error)
}

// Repository keeps discounts and wishlists in memory, reading products and
// customers from the order store.
type Repository struct {
	products  ProductSource
	customers ports.CustomerDirectory

	mu        sync.RWMutex
	discounts []discounts.Discount
	wishlists map[string]map[string]struct{}
}

func NewRepository(products ProductSource, customers ports.CustomerDirectory) *Repository {
	return &Repository{
		products:  products,
		customers: customers,
		wishlists: make(map[string]map[string]struct{}),
	}
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return r.products.Product(ctx, id)
}

func (r *Repository) Create(_ context.Context, d discounts.Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discounts = append(r.discounts, d)
	return nil
}

// SeedWishlist puts products on a customer's wishlist. Wishlists are owned
// by the storefront, so this store only receives them as seed data.
func (r *Repository) SeedWishlist(customerID string, productIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, productID := range productIDs {
		customers, ok := r.wishlists[productID]
		if !ok {
			customers = make(map[string]struct{})
			r.wishlists[productID] = customers
		}
		customers[customerID] = struct{}{}
	}
}

// WishlistEmails skips customers the directory no longer knows.
func (r *Repository) WishlistEmails(ctx context.Context, productID string) ([]string, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.wishlists[productID]))
	for id := range r.wishlists[productID] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	emails := make([]string, 0, len(ids))
	for _, id := range ids {
		customer, err := r.customers.GetCustomer(ctx, id)
		if err != nil {
			continue
		}
		emails = append(emails, customer.Email)
	}
	sort.Strings(emails)
	return emails, nil
}

func (r *Repository) Discounts() []discounts.Discount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]discounts.Discount(nil), r.discounts...)
}
