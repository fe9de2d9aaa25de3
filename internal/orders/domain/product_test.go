package domain_test

import (
	"testing"

	"github.com/dejobratic/petstore/internal/orders/domain"
)

func TestProductCanReserve(t *testing.T) {
	product := domain.Product{ID: "p1", Quantity: 3}

	tests := []struct {
		amount int
		want   bool
	}{
		{1, true},
		{3, true},
		{4, false},
		{0, false},
		{-1, false},
	}

	for _, tt := range tests {
		if got := product.CanReserve(tt.amount); got != tt.want {
			t.Errorf("CanReserve(%d) = %v, want %v", tt.amount, got, tt.want)
		}
	}
}
