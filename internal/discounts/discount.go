// Package discounts creates time-boxed product discounts and tells the
// customers who wishlisted the product.
package discounts

import (
	"context"
	"time"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is a percentage reduction of a product's price, valid in
// [StartDate, EndDate).
type Discount struct {
	ID              string          `json:"discount_id"`
	ProductID       string          `json:"product_id"`
	Rate            decimal.Decimal `json:"rate"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

// DiscountedPrice applies a percentage rate to price, rounded to cents.
func DiscountedPrice(price, rate decimal.Decimal) decimal.Decimal {
	return price.Mul(hundred.Sub(rate)).Div(hundred).Round(2)
}

func validate(rate decimal.Decimal, start, end time.Time) error {
	if !rate.IsPositive() || rate.GreaterThan(hundred) {
		return &domain.ValidationError{Field: "rate", Reason: "must be greater than 0 and at most 100"}
	}
	if start.IsZero() || end.IsZero() {
		return &domain.ValidationError{Field: "start_date", Reason: "start and end dates are required"}
	}
	if !start.Before(end) {
		return &domain.ValidationError{Field: "end_date", Reason: "must be after start_date"}
	}
	return nil
}

// Repository persists discounts and resolves the products and wishlists they
// refer to. GetProduct returns ports.ErrNotFound for unknown products.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, discount Discount) error
	WishlistEmails(ctx context.Context, productID string) ([]string, error)
}
