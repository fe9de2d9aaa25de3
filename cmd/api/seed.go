package main

import (
	discountsmemory "github.com/dejobratic/petstore/internal/discounts/memory"
	"github.com/dejobratic/petstore/internal/orders/adapters/memory"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/shopspring/decimal"
)

// seedDemoData fills the in-memory store so the API is usable without postgres.
func seedDemoData(store *memory.Store, wishlist *discountsmemory.Repository) {
	store.SeedProducts(
		domain.Product{ID: "dog-food-10kg", Name: "Dry dog food 10kg", Quantity: 50, Price: decimal.RequireFromString("39.90")},
		domain.Product{ID: "cat-litter-5l", Name: "Clumping cat litter 5L", Quantity: 80, Price: decimal.RequireFromString("12.50")},
		domain.Product{ID: "bird-cage-m", Name: "Bird cage, medium", Quantity: 5, Price: decimal.RequireFromString("89.00")},
		domain.Product{ID: "aquarium-60l", Name: "Aquarium 60L", Quantity: 3, Price: decimal.RequireFromString("149.99")},
	)
	store.SeedCustomers(
		domain.Customer{ID: "customer-1", Email: "alice@example.com", Name: "Alice"},
		domain.Customer{ID: "customer-2", Email: "bob@example.com", Name: "Bob"},
	)
	wishlist.SeedWishlist("customer-1", "aquarium-60l", "bird-cage-m")
	wishlist.SeedWishlist("customer-2", "aquarium-60l")
}
