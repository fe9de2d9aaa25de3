package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/shopspring/decimal"
)

func validOrder() domain.Order {
	return domain.Order{
		ID:            "order-1",
		CustomerID:    "c1",
		TotalPrice:    decimal.RequireFromString("30.00"),
		OrderDate:     time.Now().UTC(),
		PaymentStatus: domain.PaymentUnpaid,
		Status:        domain.StatusPending,
		Items: []domain.LineItem{
			{ProductID: "p1", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("15.0")},
		},
	}
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(o *domain.Order)
		wantErr   bool
		wantField string
	}{
		{
			name:    "valid order",
			mutate:  func(o *domain.Order) {},
			wantErr: false,
		},
		{
			name:      "missing customer",
			mutate:    func(o *domain.Order) { o.CustomerID = "  " },
			wantErr:   true,
			wantField: "customer_id",
		},
		{
			name:      "no items",
			mutate:    func(o *domain.Order) { o.Items = nil },
			wantErr:   true,
			wantField: "items",
		},
		{
			name:      "zero quantity",
			mutate:    func(o *domain.Order) { o.Items[0].Quantity = 0; o.TotalPrice = decimal.Zero },
			wantErr:   true,
			wantField: "items[0].quantity",
		},
		{
			name:      "negative quantity",
			mutate:    func(o *domain.Order) { o.Items[0].Quantity = -1 },
			wantErr:   true,
			wantField: "items[0].quantity",
		},
		{
			name:      "missing product id",
			mutate:    func(o *domain.Order) { o.Items[0].ProductID = "" },
			wantErr:   true,
			wantField: "items[0].product_id",
		},
		{
			name:      "total mismatch",
			mutate:    func(o *domain.Order) { o.TotalPrice = decimal.RequireFromString("29.99") },
			wantErr:   true,
			wantField: "total_price",
		},
		{
			name: "total matches across several items",
			mutate: func(o *domain.Order) {
				o.Items = append(o.Items, domain.LineItem{ProductID: "p2", Quantity: 3, PriceAtPurchase: decimal.RequireFromString("0.10")})
				o.TotalPrice = decimal.RequireFromString("30.30")
			},
			wantErr: false,
		},
		{
			name: "price with sub-cent precision",
			mutate: func(o *domain.Order) {
				o.Items[0].PriceAtPurchase = decimal.RequireFromString("0.333")
				o.Items[0].Quantity = 3
				o.TotalPrice = decimal.RequireFromString("0.999")
			},
			wantErr:   true,
			wantField: "items[0].price_at_purchase",
		},
		{
			name: "price beyond column range",
			mutate: func(o *domain.Order) {
				o.Items[0].PriceAtPurchase = decimal.RequireFromString("100000000")
				o.Items[0].Quantity = 1
				o.TotalPrice = decimal.RequireFromString("100000000")
			},
			wantErr:   true,
			wantField: "items[0].price_at_purchase",
		},
		{
			name: "total beyond column range",
			mutate: func(o *domain.Order) {
				o.Items[0].PriceAtPurchase = decimal.RequireFromString("60000000")
				o.Items[0].Quantity = 2
				o.TotalPrice = decimal.RequireFromString("120000000")
			},
			wantErr:   true,
			wantField: "total_price",
		},
		{
			name: "largest storable price",
			mutate: func(o *domain.Order) {
				o.Items[0].PriceAtPurchase = decimal.RequireFromString("99999999.99")
				o.Items[0].Quantity = 1
				o.TotalPrice = decimal.RequireFromString("99999999.99")
			},
			wantErr: false,
		},
		{
			name:      "status out of range",
			mutate:    func(o *domain.Order) { o.Status = domain.OrderStatus(9) },
			wantErr:   true,
			wantField: "order_status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := validOrder()
			tt.mutate(&order)

			err := order.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Order.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}

			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error kind, got %v", err)
			}
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, vErr.Field)
			}
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	for value := 0; value <= 5; value++ {
		status, err := domain.ParseOrderStatus(value)
		if err != nil {
			t.Errorf("ParseOrderStatus(%d) unexpected error: %v", value, err)
		}
		if int(status) != value {
			t.Errorf("ParseOrderStatus(%d) = %d", value, status)
		}
	}

	for _, value := range []int{-1, 6, 42} {
		if _, err := domain.ParseOrderStatus(value); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ParseOrderStatus(%d) expected validation error, got %v", value, err)
		}
	}
}

func TestOrderStatusName(t *testing.T) {
	tests := []struct {
		status domain.OrderStatus
		want   string
	}{
		{domain.StatusPending, "pending"},
		{domain.StatusProcessing, "processing"},
		{domain.StatusShipped, "shipped"},
		{domain.StatusDelivered, "delivered"},
		{domain.StatusCancelled, "cancelled"},
		{domain.StatusReturned, "returned"},
		{domain.OrderStatus(7), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOrderStatusCancellable(t *testing.T) {
	tests := []struct {
		status domain.OrderStatus
		want   bool
	}{
		{domain.StatusPending, true},
		{domain.StatusProcessing, true},
		{domain.StatusShipped, false},
		{domain.StatusDelivered, false},
		{domain.StatusCancelled, false},
		{domain.StatusReturned, false},
	}

	for _, tt := range tests {
		t.Run(tt.status.Name(), func(t *testing.T) {
			if got := tt.status.Cancellable(); got != tt.want {
				t.Errorf("Cancellable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequestedQuantitiesAggregatesRepeatedProducts(t *testing.T) {
	order := domain.Order{
		Items: []domain.LineItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
			{ProductID: "p1", Quantity: 3},
		},
	}

	got := order.RequestedQuantities()
	if got["p1"] != 5 {
		t.Errorf("expected p1 total 5, got %d", got["p1"])
	}
	if got["p2"] != 1 {
		t.Errorf("expected p2 total 1, got %d", got["p2"])
	}
}

func TestParsePaymentStatus(t *testing.T) {
	if status, err := domain.ParsePaymentStatus("PAID"); err != nil || status != domain.PaymentPaid {
		t.Errorf("expected paid, got %q (%v)", status, err)
	}
	if _, err := domain.ParsePaymentStatus("refunded"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestParseRefundDecision(t *testing.T) {
	tests := []struct {
		input   string
		want    domain.RefundStatus
		wantErr bool
	}{
		{"approved", domain.RefundApproved, false},
		{" Declined ", domain.RefundDeclined, false},
		{"pending", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := domain.ParseRefundDecision(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRefundDecision(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRefundDecision(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
