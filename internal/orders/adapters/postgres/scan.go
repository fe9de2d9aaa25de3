package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = `order_id, customer_id, total_price::text, order_date, payment_status, order_status, invoice_link`

const itemColumns = `order_item_id, order_id, product_id, quantity, price_at_purchase::text`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		order   domain.Order
		total   string
		payment string
		status  int
	)

	if err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&total,
		&order.OrderDate,
		&payment,
		&status,
		&order.InvoiceLink,
	); err != nil {
		return domain.Order{}, err
	}

	price, err := decimal.NewFromString(total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse total price %q: %w", total, err)
	}

	order.TotalPrice = price
	order.PaymentStatus = domain.PaymentStatus(payment)
	order.Status = domain.OrderStatus(status)
	order.OrderDate = order.OrderDate.UTC()

	return order, nil
}

func scanItem(row pgx.Row) (domain.LineItem, error) {
	var (
		item  domain.LineItem
		price string
	)

	if err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &price); err != nil {
		return domain.LineItem{}, err
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("parse price at purchase %q: %w", price, err)
	}
	item.PriceAtPurchase = parsed

	return item, nil
}

// loadOrder reads an order and its line items. With forUpdate the order row is
// locked until the surrounding transaction ends.
func loadOrder(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, wrap("select order", err)
	}

	items, err := loadItems(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]
	if order.Items == nil {
		order.Items = []domain.LineItem{}
	}

	return &order, nil
}

// loadItems returns the line items of the given orders keyed by order id.
func loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]domain.LineItem, error) {
	result := make(map[string][]domain.LineItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := q.Query(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, seq`,
		orderIDs,
	)
	if err != nil {
		return nil, wrap("query order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, wrap("scan order item", err)
		}
		result[item.OrderID] = append(result[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap("iterate order items", err)
	}

	return result, nil
}
