package app

import (
	"context"

	"github.com/dejobratic/petstore/internal/orders/app/commands"
	"github.com/dejobratic/petstore/internal/orders/app/queries"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/shopspring/decimal"
)

// Service bundles use cases for handling orders via the API.
type Service struct {
	idemStore ports.IdempotencyStore

	placeOrder    commands.PlaceOrderHandler
	updateStatus  *commands.UpdateOrderStatusCommandHandler
	cancelOrder   *commands.CancelOrderCommandHandler
	returnItem    *commands.ReturnItemCommandHandler
	requestRefund *commands.RequestRefundCommandHandler
	decideRefund  *commands.DecideRefundCommandHandler

	getOrder   *queries.GetOrderQueryHandler
	listOrders *queries.ListCustomerOrdersQueryHandler
}

// NewService wires required dependencies. Order placement is wrapped with
// tracing, logging and metrics.
func NewService(deps commands.Dependencies, idem ports.IdempotencyStore) *Service {
	coreHandler := commands.NewPlaceOrderCommandHandler(deps.Store, deps.Orders, deps.Events, deps.Logger,
		commands.WithRetry(deps.Retry),
		commands.WithMetrics(deps.Metrics),
	)

	return &Service{
		idemStore:     idem,
		placeOrder:    commands.NewObservablePlaceOrderHandler(coreHandler, deps.Logger, deps.Metrics),
		updateStatus:  commands.NewUpdateOrderStatusCommandHandler(deps),
		cancelOrder:   commands.NewCancelOrderCommandHandler(deps),
		returnItem:    commands.NewReturnItemCommandHandler(deps),
		requestRefund: commands.NewRequestRefundCommandHandler(deps),
		decideRefund:  commands.NewDecideRefundCommandHandler(deps),
		getOrder:      queries.NewGetOrderQueryHandler(deps.Orders),
		listOrders:    queries.NewListCustomerOrdersQueryHandler(deps.Orders),
	}
}

// OrderItemInput is one requested line item.
type OrderItemInput struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// PlaceOrderInput captures payload for placing an order.
type PlaceOrderInput struct {
	CustomerID    string           `json:"customer_id"`
	Items         []OrderItemInput `json:"items"`
	TotalPrice    decimal.Decimal  `json:"total_price"`
	OrderDate     string           `json:"order_date"`
	PaymentStatus string           `json:"payment_status,omitempty"`
	OrderStatus   *int             `json:"order_status,omitempty"`
}

// PlaceOrder reserves stock and persists the order.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	cmd := commands.PlaceOrderCommand{
		CustomerID:    input.CustomerID,
		TotalPrice:    input.TotalPrice,
		OrderDate:     input.OrderDate,
		PaymentStatus: input.PaymentStatus,
		OrderStatus:   input.OrderStatus,
		Items:         make([]commands.PlaceOrderItem, len(input.Items)),
	}
	for i, item := range input.Items {
		cmd.Items[i] = commands.PlaceOrderItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		}
	}
	return s.placeOrder.Handle(ctx, cmd)
}

// GetOrder retrieves an order by ID. A non-empty customerID restricts the
// lookup to that customer's orders.
func (s *Service) GetOrder(ctx context.Context, id, customerID string) (*domain.Order, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{OrderID: id, CustomerID: customerID})
}

// ListCustomerOrders returns a page of the customer's orders.
func (s *Service) ListCustomerOrders(ctx context.Context, query queries.ListCustomerOrdersQuery) ([]domain.Order, error) {
	return s.listOrders.Handle(ctx, query)
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status int) (domain.OrderStatus, error) {
	return s.updateStatus.Handle(ctx, commands.UpdateOrderStatusCommand{OrderID: id, Status: status})
}

func (s *Service) CancelOrder(ctx context.Context, id, customerID string) (*domain.Order, error) {
	return s.cancelOrder.Handle(ctx, commands.CancelOrderCommand{OrderID: id, CustomerID: customerID})
}

func (s *Service) ReturnItem(ctx context.Context, cmd commands.ReturnItemCommand) (*domain.Order, error) {
	return s.returnItem.Handle(ctx, cmd)
}

func (s *Service) RequestRefund(ctx context.Context, cmd commands.RequestRefundCommand) ([]domain.Refund, error) {
	return s.requestRefund.Handle(ctx, cmd)
}

func (s *Service) DecideRefund(ctx context.Context, refundID, status string) (*domain.Refund, error) {
	return s.decideRefund.Handle(ctx, commands.DecideRefundCommand{RefundID: refundID, Status: status})
}

// SaveIdempotentResponse writes response details for a key. Keys are scoped
// to the caller, so two customers may use the same key independently.
func (s *Service) SaveIdempotentResponse(ctx context.Context, callerID, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, idempotencyScope(callerID, key), response)
}

// GetIdempotentResponse retrieves the response the caller stored under key.
func (s *Service) GetIdempotentResponse(ctx context.Context, callerID, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, idempotencyScope(callerID, key))
}

func idempotencyScope(callerID, key string) string {
	return callerID + ":" + key
}
