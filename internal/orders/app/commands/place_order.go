package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/metrics"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PlaceOrderItem struct {
	ProductID       string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// PlaceOrderCommand carries an order request. PaymentStatus and OrderStatus
// are optional overrides of the unpaid/pending defaults.
type PlaceOrderCommand struct {
	CustomerID    string
	Items         []PlaceOrderItem
	TotalPrice    decimal.Decimal
	OrderDate     string
	PaymentStatus string
	OrderStatus   *int
}

type PlaceOrderHandler interface {
	Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error)
}

type PlaceOrderCommandHandler struct {
	store   ports.Store
	repo    ports.OrderRepository
	events  ports.EventBus
	retry   RetryConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

type PlaceOrderOption func(*PlaceOrderCommandHandler)

func WithRetry(cfg RetryConfig) PlaceOrderOption {
	return func(h *PlaceOrderCommandHandler) { h.retry = cfg }
}

func WithMetrics(m *metrics.Metrics) PlaceOrderOption {
	return func(h *PlaceOrderCommandHandler) { h.metrics = m }
}

func WithClock(now func() time.Time) PlaceOrderOption {
	return func(h *PlaceOrderCommandHandler) { h.now = now }
}

func WithIDGenerator(newID func() string) PlaceOrderOption {
	return func(h *PlaceOrderCommandHandler) { h.newID = newID }
}

func NewPlaceOrderCommandHandler(
	store ports.Store,
	repo ports.OrderRepository,
	events ports.EventBus,
	logger *slog.Logger,
	opts ...PlaceOrderOption,
) *PlaceOrderCommandHandler {
	h := &PlaceOrderCommandHandler{
		store:  store,
		repo:   repo,
		events: events,
		retry:  DefaultRetryConfig(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle validates the request, then reserves stock and persists the order in
// one transaction, re-running the whole transaction on transient storage
// faults. Validation and business-rule failures are never retried.
func (h *PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error) {
	order, err := h.buildOrder(cmd)
	if err != nil {
		return nil, err
	}

	attempts, err := inTransaction(ctx, h.store, h.retry.policy(h.logger, "place_order"), h.logger,
		func(ctx context.Context, session ports.Session, attempt int) error {
			h.assignIDs(&order)
			return h.reserveAndPersist(ctx, session, order)
		},
	)
	h.metrics.RecordPlacementAttempts(ctx, attempts)
	if err != nil {
		return nil, classify(err)
	}

	if err := h.events.PublishOrderPlaced(ctx, order); err != nil {
		h.logger.ErrorContext(ctx, "failed to publish order placed event", "order_id", order.ID, "error", err)
	}

	placed, err := h.repo.GetByID(ctx, order.ID)
	if err != nil {
		h.logger.WarnContext(ctx, "order committed but reload failed", "order_id", order.ID, "error", err)
		return &order, nil
	}

	return placed, nil
}

func (h *PlaceOrderCommandHandler) buildOrder(cmd PlaceOrderCommand) (domain.Order, error) {
	orderDate := h.now()
	if strings.TrimSpace(cmd.OrderDate) != "" {
		parsed, err := domain.ParseOrderDate(cmd.OrderDate)
		if err != nil {
			return domain.Order{}, err
		}
		orderDate = parsed
	}

	order := domain.Order{
		CustomerID:    strings.TrimSpace(cmd.CustomerID),
		TotalPrice:    cmd.TotalPrice,
		OrderDate:     orderDate,
		PaymentStatus: domain.PaymentUnpaid,
		Status:        domain.StatusPending,
		Items:         make([]domain.LineItem, 0, len(cmd.Items)),
	}

	if cmd.PaymentStatus != "" {
		payment, err := domain.ParsePaymentStatus(cmd.PaymentStatus)
		if err != nil {
			return domain.Order{}, err
		}
		order.PaymentStatus = payment
	}

	if cmd.OrderStatus != nil {
		status, err := domain.ParseOrderStatus(*cmd.OrderStatus)
		if err != nil {
			return domain.Order{}, err
		}
		order.Status = status
	}

	for _, item := range cmd.Items {
		order.Items = append(order.Items, domain.LineItem{
			ProductID:       strings.TrimSpace(item.ProductID),
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}

	if err := order.Validate(); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// assignIDs gives the order and its line items fresh identifiers so a retried
// attempt never collides with rows a failed attempt may have left behind.
func (h *PlaceOrderCommandHandler) assignIDs(order *domain.Order) {
	order.ID = h.newID()
	for i := range order.Items {
		order.Items[i].ID = h.newID()
		order.Items[i].OrderID = order.ID
	}
}

func (h *PlaceOrderCommandHandler) reserveAndPersist(ctx context.Context, session ports.Session, order domain.Order) error {
	requested := order.RequestedQuantities()
	available := make(map[string]int, len(requested))

	for _, item := range order.Items {
		if _, seen := available[item.ProductID]; seen {
			continue
		}

		product, err := session.Catalog().GetByID(ctx, item.ProductID)
		if errors.Is(err, ports.ErrNotFound) {
			return &domain.ProductNotFoundError{ProductID: item.ProductID}
		}
		if err != nil {
			return fmt.Errorf("get product %s: %w", item.ProductID, err)
		}

		if !product.CanReserve(requested[item.ProductID]) {
			return &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Available: product.Quantity,
				Requested: requested[item.ProductID],
			}
		}
		available[item.ProductID] = product.Quantity
	}

	if err := session.Orders().Create(ctx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	for _, item := range order.Items {
		err := session.Catalog().DecrementStock(ctx, item.ProductID, item.Quantity)
		if errors.Is(err, ports.ErrInsufficientStock) {
			return &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Available: available[item.ProductID],
				Requested: requested[item.ProductID],
			}
		}
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
		}

		if err := session.Orders().AddLineItem(ctx, item); err != nil {
			return fmt.Errorf("add line item for %s: %w", item.ProductID, err)
		}
	}

	return nil
}
