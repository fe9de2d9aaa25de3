package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dejobratic/petstore/internal/orders/domain"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", &domain.ValidationError{Field: "order_date", Reason: "bad"}, domain.ErrValidation},
		{"product not found", &domain.ProductNotFoundError{ProductID: "p1"}, domain.ErrBusinessRule},
		{"insufficient stock", &domain.InsufficientStockError{ProductID: "p1", Available: 1, Requested: 2}, domain.ErrBusinessRule},
		{"return exceeds purchase", &domain.ReturnExceedsPurchaseError{ProductID: "p1", Purchased: 1, Requested: 3}, domain.ErrBusinessRule},
		{"status transition", &domain.StatusTransitionError{From: "shipped", Action: "cancel order"}, domain.ErrBusinessRule},
		{"storage", &domain.StorageError{Attempts: 3, Err: cause}, domain.ErrStorage},
		{"wrapped business rule", fmt.Errorf("place order: %w", &domain.ProductNotFoundError{ProductID: "p9"}), domain.ErrBusinessRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("expected %v to be of kind %v", tt.err, tt.kind)
			}
		})
	}
}

func TestStorageErrorWrapsCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := &domain.StorageError{Attempts: 3, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected storage error to unwrap to its cause")
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrBusinessRule) {
		t.Error("storage error must not look like a client error")
	}
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &domain.InsufficientStockError{ProductID: "p1", Available: 1, Requested: 2}
	want := "insufficient stock for product p1: available 1, requested 2"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
