package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/google/uuid"
)

type RequestRefundCommand struct {
	OrderID    string
	CustomerID string
	ProductIDs []string
	Reason     string
}

type RequestRefundCommandHandler struct {
	deps Dependencies
	now  func() time.Time
}

func NewRequestRefundCommandHandler(deps Dependencies) *RequestRefundCommandHandler {
	return &RequestRefundCommandHandler{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// Handle creates one pending refund per distinct requested line item, for the
// full price paid for that item. A line item with an undecided refund cannot
// be refunded again.
func (h *RequestRefundCommandHandler) Handle(ctx context.Context, cmd RequestRefundCommand) ([]domain.Refund, error) {
	refunds, err := h.handle(ctx, cmd)
	h.deps.Metrics.RecordTransition(ctx, "request_refund", err)
	return refunds, err
}

func (h *RequestRefundCommandHandler) handle(ctx context.Context, cmd RequestRefundCommand) ([]domain.Refund, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return nil, &domain.ValidationError{Field: "order_id", Reason: "is required"}
	}
	if len(cmd.ProductIDs) == 0 {
		return nil, &domain.ValidationError{Field: "product_ids", Reason: "at least one product is required"}
	}

	var refunds []domain.Refund
	_, err := inTransaction(ctx, h.deps.Store, h.deps.Retry.policy(h.deps.Logger, "request_refund"), h.deps.Logger,
		func(ctx context.Context, session ports.Session, _ int) error {
			refunds = refunds[:0]

			order, err := session.Orders().GetForUpdate(ctx, cmd.OrderID)
			if err != nil {
				return err
			}
			if err := ensureOwner(order, cmd.CustomerID); err != nil {
				return err
			}
			if order.Status == domain.StatusCancelled {
				return &domain.StatusTransitionError{From: order.Status.Name(), Action: "request refund"}
			}

			pending, err := pendingRefunds(ctx, session, order.ID)
			if err != nil {
				return err
			}

			requestedAt := h.now()
			seen := make(map[string]bool, len(cmd.ProductIDs))
			for _, productID := range cmd.ProductIDs {
				if seen[productID] {
					continue
				}
				seen[productID] = true

				item, ok := order.FindItem(productID)
				if !ok {
					return fmt.Errorf("line item for product %s: %w", productID, ports.ErrNotFound)
				}
				if existing, ok := pending[item.ID]; ok {
					return &domain.RefundPendingError{ProductID: productID, RefundID: existing.ID}
				}

				refund := domain.Refund{
					ID:          uuid.NewString(),
					OrderID:     order.ID,
					OrderItemID: item.ID,
					ProductID:   item.ProductID,
					Quantity:    item.Quantity,
					Amount:      item.Subtotal(),
					Reason:      cmd.Reason,
					Status:      domain.RefundPending,
					RequestedAt: requestedAt,
				}
				if err := session.Refunds().Create(ctx, refund); err != nil {
					return fmt.Errorf("create refund: %w", err)
				}
				refunds = append(refunds, refund)
			}
			return nil
		},
	)
	if err != nil {
		return nil, classify(err)
	}

	h.deps.Logger.InfoContext(ctx, "refunds requested", "order_id", cmd.OrderID, "count", len(refunds))
	return refunds, nil
}

type DecideRefundCommand struct {
	RefundID string
	Status   string
}

type DecideRefundCommandHandler struct {
	deps Dependencies
	now  func() time.Time
}

func NewDecideRefundCommandHandler(deps Dependencies) *DecideRefundCommandHandler {
	return &DecideRefundCommandHandler{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// Handle approves or declines a pending refund. Approval puts the refunded
// quantity back into stock and removes it from the order in the same
// transaction, so the units cannot be refunded or returned twice. The
// customer is emailed once the decision is committed.
func (h *DecideRefundCommandHandler) Handle(ctx context.Context, cmd DecideRefundCommand) (*domain.Refund, error) {
	refund, err := h.handle(ctx, cmd)
	h.deps.Metrics.RecordTransition(ctx, "decide_refund", err)
	return refund, err
}

func (h *DecideRefundCommandHandler) handle(ctx context.Context, cmd DecideRefundCommand) (*domain.Refund, error) {
	if strings.TrimSpace(cmd.RefundID) == "" {
		return nil, &domain.ValidationError{Field: "refund_id", Reason: "is required"}
	}

	decision, err := domain.ParseRefundDecision(cmd.Status)
	if err != nil {
		return nil, err
	}

	var (
		decided    *domain.Refund
		customerID string
		returned   bool
	)
	_, err = inTransaction(ctx, h.deps.Store, h.deps.Retry.policy(h.deps.Logger, "decide_refund"), h.deps.Logger,
		func(ctx context.Context, session ports.Session, _ int) error {
			refund, err := session.Refunds().GetForUpdate(ctx, cmd.RefundID)
			if err != nil {
				return err
			}
			if !refund.IsPending() {
				return &domain.StatusTransitionError{From: string(refund.Status), Action: "decide refund"}
			}

			order, err := session.Orders().GetForUpdate(ctx, refund.OrderID)
			if err != nil {
				return fmt.Errorf("load refunded order: %w", err)
			}

			if decision == domain.RefundApproved {
				if err := session.Catalog().IncrementStock(ctx, refund.ProductID, refund.Quantity); err != nil {
					return fmt.Errorf("restore stock for %s: %w", refund.ProductID, err)
				}
				if err := removeUnits(ctx, session, order, refund.OrderItemID, refund.Quantity); err != nil {
					return fmt.Errorf("remove refunded item: %w", err)
				}
			}

			decidedAt := h.now()
			refund.Status = decision
			refund.DecidedAt = &decidedAt
			if err := session.Refunds().UpdateStatus(ctx, *refund); err != nil {
				return fmt.Errorf("update refund: %w", err)
			}

			decided = refund
			customerID = order.CustomerID
			returned = order.Status == domain.StatusReturned
			return nil
		},
	)
	if err != nil {
		return nil, classify(err)
	}

	h.deps.Logger.InfoContext(ctx, "refund decided", "refund_id", decided.ID, "status", string(decided.Status))
	if returned && decided.Status == domain.RefundApproved {
		h.deps.publishStatus(ctx, decided.OrderID, domain.StatusReturned)
	}
	h.notifyCustomer(ctx, customerID, *decided)

	return decided, nil
}

func (h *DecideRefundCommandHandler) notifyCustomer(ctx context.Context, customerID string, refund domain.Refund) {
	customer, err := h.deps.Customers.GetCustomer(ctx, customerID)
	if err != nil {
		h.deps.Logger.WarnContext(ctx, "refund decided but customer lookup failed",
			"refund_id", refund.ID,
			"customer_id", customerID,
			"error", err,
		)
		return
	}

	subject := fmt.Sprintf("Your refund request was %s", refund.Status)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour refund request for order %s (amount %s) has been %s.\n",
		customer.Name, refund.OrderID, refund.Amount.StringFixed(2), refund.Status,
	)
	h.deps.Notifier.Notify(ctx, customer.Email, subject, body)
}
