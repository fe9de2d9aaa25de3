package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundPending  RefundStatus = "pending"
	RefundApproved RefundStatus = "approved"
	RefundDeclined RefundStatus = "declined"
)

// ParseRefundDecision accepts only the terminal refund states.
func ParseRefundDecision(value string) (RefundStatus, error) {
	switch RefundStatus(strings.ToLower(strings.TrimSpace(value))) {
	case RefundApproved:
		return RefundApproved, nil
	case RefundDeclined:
		return RefundDeclined, nil
	default:
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("must be approved or declined, got %q", value)}
	}
}

// Refund is a customer's request to be reimbursed for one line item.
type Refund struct {
	ID          string          `json:"refund_id"`
	OrderID     string          `json:"order_id"`
	OrderItemID string          `json:"order_item_id"`
	ProductID   string          `json:"product_id"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"refund_amount"`
	Reason      string          `json:"reason,omitempty"`
	Status      RefundStatus    `json:"status"`
	RequestedAt time.Time       `json:"request_date"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
}

func (r Refund) IsPending() bool {
	return r.Status == RefundPending
}
