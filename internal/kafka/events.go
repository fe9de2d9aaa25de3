package kafka

import (
	"time"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderPlacedEvent struct {
	EventType  string          `json:"event_type"`
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []EventItem     `json:"items"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type EventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderStatusChangedEvent struct {
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	Status     int       `json:"order_status"`
	StatusName string    `json:"order_status_name"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newOrderPlacedEvent(order domain.Order, at time.Time) OrderPlacedEvent {
	items := make([]EventItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = EventItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return OrderPlacedEvent{
		EventType:  EventOrderPlaced,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		TotalPrice: order.TotalPrice,
		Items:      items,
		OccurredAt: at,
	}
}

func newOrderStatusChangedEvent(orderID string, status domain.OrderStatus, at time.Time) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		EventType:  EventOrderStatusChanged,
		OrderID:    orderID,
		Status:     int(status),
		StatusName: status.Name(),
		OccurredAt: at,
	}
}
