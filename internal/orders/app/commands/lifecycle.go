package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/metrics"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/dejobratic/petstore/internal/retry"
)

// Dependencies are shared by the order lifecycle commands.
type Dependencies struct {
	Store     ports.Store
	Orders    ports.OrderRepository
	Events    ports.EventBus
	Customers ports.CustomerDirectory
	Notifier  ports.Notifier
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Retry     RetryConfig
}

func (d Dependencies) publishStatus(ctx context.Context, orderID string, status domain.OrderStatus) {
	if err := d.Events.PublishOrderStatusChanged(ctx, orderID, status); err != nil {
		d.Logger.ErrorContext(ctx, "failed to publish status change", "order_id", orderID, "status", status.Name(), "error", err)
	}
}

func ensureOwner(order *domain.Order, customerID string) error {
	if customerID != "" && order.CustomerID != customerID {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrForbidden)
	}
	return nil
}

// pendingRefunds returns the undecided refunds of an order keyed by line item.
func pendingRefunds(ctx context.Context, session ports.Session, orderID string) (map[string]domain.Refund, error) {
	refunds, err := session.Refunds().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	pending := make(map[string]domain.Refund, len(refunds))
	for _, refund := range refunds {
		if refund.IsPending() {
			pending[refund.OrderItemID] = refund
		}
	}
	return pending, nil
}

// removeUnits takes quantity units off a line item, deleting it when nothing
// is left. An order without line items becomes returned. Stock is the
// caller's concern.
func removeUnits(ctx context.Context, session ports.Session, order *domain.Order, itemID string, quantity int) error {
	remaining := make([]domain.LineItem, 0, len(order.Items))
	found := false
	for _, existing := range order.Items {
		if existing.ID != itemID {
			remaining = append(remaining, existing)
			continue
		}
		found = true
		if quantity > existing.Quantity {
			return &domain.ReturnExceedsPurchaseError{
				ProductID: existing.ProductID,
				Purchased: existing.Quantity,
				Requested: quantity,
			}
		}
		if existing.Quantity == quantity {
			if err := session.Orders().DeleteLineItem(ctx, existing.ID); err != nil {
				return fmt.Errorf("delete line item: %w", err)
			}
			continue
		}
		existing.Quantity -= quantity
		if err := session.Orders().UpdateLineItemQuantity(ctx, existing.ID, existing.Quantity); err != nil {
			return fmt.Errorf("update line item: %w", err)
		}
		remaining = append(remaining, existing)
	}
	if !found {
		return fmt.Errorf("line item %s: %w", itemID, ports.ErrNotFound)
	}
	order.Items = remaining

	if len(order.Items) == 0 {
		if err := session.Orders().UpdateStatus(ctx, order.ID, domain.StatusReturned); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		order.Status = domain.StatusReturned
	}
	return nil
}

type UpdateOrderStatusCommand struct {
	OrderID string
	Status  int
}

type UpdateOrderStatusCommandHandler struct {
	deps Dependencies
}

func NewUpdateOrderStatusCommandHandler(deps Dependencies) *UpdateOrderStatusCommandHandler {
	return &UpdateOrderStatusCommandHandler{deps: deps}
}

// Handle sets the order status. Values outside 0..5 are rejected before the
// store is touched.
func (h *UpdateOrderStatusCommandHandler) Handle(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.OrderStatus, error) {
	status, err := h.handle(ctx, cmd)
	h.deps.Metrics.RecordTransition(ctx, "update_status", err)
	return status, err
}

func (h *UpdateOrderStatusCommandHandler) handle(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.OrderStatus, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return 0, &domain.ValidationError{Field: "order_id", Reason: "is required"}
	}

	status, err := domain.ParseOrderStatus(cmd.Status)
	if err != nil {
		return 0, err
	}

	_, err = retry.Do(ctx, h.deps.Retry.policy(h.deps.Logger, "update_order_status"), func(ctx context.Context, _ int) error {
		return h.deps.Orders.UpdateStatus(ctx, cmd.OrderID, status)
	})
	if err != nil {
		return 0, classify(err)
	}

	h.deps.Logger.InfoContext(ctx, "order status updated", "order_id", cmd.OrderID, "status", status.Name())
	h.deps.publishStatus(ctx, cmd.OrderID, status)

	return status, nil
}

type CancelOrderCommand struct {
	OrderID    string
	CustomerID string
}

type CancelOrderCommandHandler struct {
	deps Dependencies
}

func NewCancelOrderCommandHandler(deps Dependencies) *CancelOrderCommandHandler {
	return &CancelOrderCommandHandler{deps: deps}
}

// Handle cancels a pending or processing order and puts its stock back. An
// order with an undecided refund cannot be cancelled.
func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (*domain.Order, error) {
	order, err := h.handle(ctx, cmd)
	h.deps.Metrics.RecordTransition(ctx, "cancel", err)
	return order, err
}

func (h *CancelOrderCommandHandler) handle(ctx context.Context, cmd CancelOrderCommand) (*domain.Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return nil, &domain.ValidationError{Field: "order_id", Reason: "is required"}
	}

	var cancelled *domain.Order
	_, err := inTransaction(ctx, h.deps.Store, h.deps.Retry.policy(h.deps.Logger, "cancel_order"), h.deps.Logger,
		func(ctx context.Context, session ports.Session, _ int) error {
			order, err := session.Orders().GetForUpdate(ctx, cmd.OrderID)
			if err != nil {
				return err
			}
			if err := ensureOwner(order, cmd.CustomerID); err != nil {
				return err
			}
			if !order.Status.Cancellable() {
				return &domain.StatusTransitionError{From: order.Status.Name(), Action: "cancel order"}
			}
			pending, err := pendingRefunds(ctx, session, order.ID)
			if err != nil {
				return err
			}
			for _, item := range order.Items {
				if refund, ok := pending[item.ID]; ok {
					return &domain.RefundPendingError{ProductID: item.ProductID, RefundID: refund.ID}
				}
			}

			for _, item := range order.Items {
				if err := session.Catalog().IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return fmt.Errorf("restore stock for %s: %w", item.ProductID, err)
				}
			}

			if err := session.Orders().UpdateStatus(ctx, order.ID, domain.StatusCancelled); err != nil {
				return fmt.Errorf("update order status: %w", err)
			}

			order.Status = domain.StatusCancelled
			cancelled = order
			return nil
		},
	)
	if err != nil {
		return nil, classify(err)
	}

	h.deps.Logger.InfoContext(ctx, "order cancelled", "order_id", cancelled.ID, "items", len(cancelled.Items))
	h.deps.publishStatus(ctx, cancelled.ID, cancelled.Status)

	return cancelled, nil
}

type ReturnItemCommand struct {
	OrderID    string
	CustomerID string
	ProductID  string
	Quantity   int
}

type ReturnItemCommandHandler struct {
	deps Dependencies
}

func NewReturnItemCommandHandler(deps Dependencies) *ReturnItemCommandHandler {
	return &ReturnItemCommandHandler{deps: deps}
}

// Handle returns quantity units of a purchased product: stock is restored and
// the line item shrinks, or disappears when fully returned. An order without
// line items left becomes returned.
func (h *ReturnItemCommandHandler) Handle(ctx context.Context, cmd ReturnItemCommand) (*domain.Order, error) {
	order, err := h.handle(ctx, cmd)
	h.deps.Metrics.RecordTransition(ctx, "return", err)
	return order, err
}

func (h *ReturnItemCommandHandler) handle(ctx context.Context, cmd ReturnItemCommand) (*domain.Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return nil, &domain.ValidationError{Field: "order_id", Reason: "is required"}
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		return nil, &domain.ValidationError{Field: "product_id", Reason: "is required"}
	}
	if cmd.Quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	var updated *domain.Order
	_, err := inTransaction(ctx, h.deps.Store, h.deps.Retry.policy(h.deps.Logger, "return_item"), h.deps.Logger,
		func(ctx context.Context, session ports.Session, _ int) error {
			order, err := session.Orders().GetForUpdate(ctx, cmd.OrderID)
			if err != nil {
				return err
			}
			if err := ensureOwner(order, cmd.CustomerID); err != nil {
				return err
			}
			if order.Status == domain.StatusCancelled || order.Status == domain.StatusReturned {
				return &domain.StatusTransitionError{From: order.Status.Name(), Action: "return items"}
			}

			item, ok := order.FindItem(cmd.ProductID)
			if !ok {
				return fmt.Errorf("line item for product %s: %w", cmd.ProductID, ports.ErrNotFound)
			}
			pending, err := pendingRefunds(ctx, session, order.ID)
			if err != nil {
				return err
			}
			if refund, ok := pending[item.ID]; ok {
				return &domain.RefundPendingError{ProductID: item.ProductID, RefundID: refund.ID}
			}
			if cmd.Quantity > item.Quantity {
				return &domain.ReturnExceedsPurchaseError{
					ProductID: cmd.ProductID,
					Purchased: item.Quantity,
					Requested: cmd.Quantity,
				}
			}

			if err := session.Catalog().IncrementStock(ctx, item.ProductID, cmd.Quantity); err != nil {
				return fmt.Errorf("restore stock for %s: %w", item.ProductID, err)
			}
			if err := removeUnits(ctx, session, order, item.ID, cmd.Quantity); err != nil {
				return err
			}

			updated = order
			return nil
		},
	)
	if err != nil {
		return nil, classify(err)
	}

	h.deps.Logger.InfoContext(ctx, "order item returned",
		"order_id", updated.ID,
		"product_id", cmd.ProductID,
		"quantity", cmd.Quantity,
	)
	if updated.Status == domain.StatusReturned {
		h.deps.publishStatus(ctx, updated.ID, updated.Status)
	}

	return updated, nil
}
