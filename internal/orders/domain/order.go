package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus captures the fulfillment lifecycle of an order. Values are
// persisted as integers; Name maps them to their wire names.
type OrderStatus int

const (
	StatusPending OrderStatus = iota
	StatusProcessing
	StatusShipped
	StatusDelivered
	StatusCancelled
	StatusReturned
)

var statusNames = map[OrderStatus]string{
	StatusPending:    "pending",
	StatusProcessing: "processing",
	StatusShipped:    "shipped",
	StatusDelivered:  "delivered",
	StatusCancelled:  "cancelled",
	StatusReturned:   "returned",
}

// ParseOrderStatus converts a raw integer into an OrderStatus, rejecting
// values outside the enumeration.
func ParseOrderStatus(value int) (OrderStatus, error) {
	status := OrderStatus(value)
	if !status.Valid() {
		return 0, &ValidationError{Field: "order_status", Reason: fmt.Sprintf("invalid status %d, must be between 0 and 5", value)}
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Name returns the lowercase status label, or "unknown".
func (s OrderStatus) Name() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s OrderStatus) String() string {
	return s.Name()
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// PaymentStatus is the simulated payment state of an order.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(value))) {
	case PaymentUnpaid:
		return PaymentUnpaid, nil
	case PaymentPaid:
		return PaymentPaid, nil
	default:
		return "", &ValidationError{Field: "payment_status", Reason: fmt.Sprintf("invalid payment status %q", value)}
	}
}

// Order is a customer purchase together with its line items.
type Order struct {
	ID            string          `json:"order_id"`
	CustomerID    string          `json:"customer_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	OrderDate     time.Time       `json:"order_date"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Status        OrderStatus     `json:"order_status"`
	InvoiceLink   *string         `json:"invoice_link,omitempty"`
	Items         []LineItem      `json:"items"`
}

// LineItem is one product entry of an order. PriceAtPurchase is a snapshot
// taken when the order was placed.
type LineItem struct {
	ID              string          `json:"order_item_id"`
	OrderID         string          `json:"order_id"`
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.PriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ItemsTotal sums price_at_purchase * quantity over all line items.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Money columns are NUMERIC(10,2).
var maxMoney = decimal.New(1, 8)

func checkMoney(d decimal.Decimal) string {
	if !d.Equal(d.Round(2)) {
		return "must have at most 2 decimal places"
	}
	if d.Abs().GreaterThanOrEqual(maxMoney) {
		return "must be less than " + maxMoney.String()
	}
	return ""
}

// Validate checks the invariants an order must satisfy before it is persisted.
func (o Order) Validate() error {
	if strings.TrimSpace(o.CustomerID) == "" {
		return &ValidationError{Field: "customer_id", Reason: "is required"}
	}
	if len(o.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for i, item := range o.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].product_id", i), Reason: "is required"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be positive"}
		}
		if item.PriceAtPurchase.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("items[%d].price_at_purchase", i), Reason: "must not be negative"}
		}
		if reason := checkMoney(item.PriceAtPurchase); reason != "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].price_at_purchase", i), Reason: reason}
		}
	}
	if reason := checkMoney(o.TotalPrice); reason != "" {
		return &ValidationError{Field: "total_price", Reason: reason}
	}
	if !o.TotalPrice.Equal(o.ItemsTotal()) {
		return &ValidationError{
			Field:  "total_price",
			Reason: fmt.Sprintf("declared %s does not match line item total %s", o.TotalPrice.String(), o.ItemsTotal().String()),
		}
	}
	if !o.Status.Valid() {
		return &ValidationError{Field: "order_status", Reason: "is invalid"}
	}
	return nil
}

// FindItem returns the line item for productID, if any.
func (o Order) FindItem(productID string) (LineItem, bool) {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return LineItem{}, false
}

// RequestedQuantities aggregates requested quantities per product so repeated
// products are checked against stock as a whole.
func (o Order) RequestedQuantities() map[string]int {
	requested := make(map[string]int, len(o.Items))
	for _, item := range o.Items {
		requested[item.ProductID] += item.Quantity
	}
	return requested
}
