package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/petstore/internal/database"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store opens read-committed transactions on the pool. Stock correctness
// relies on SELECT ... FOR UPDATE row locks plus the guarded decrement.
type Store struct {
	pool    *pgxpool.Pool
	metrics *database.Metrics
}

func NewStore(pool *pgxpool.Pool, metrics *database.Metrics) *Store {
	return &Store{pool: pool, metrics: metrics}
}

func (s *Store) Begin(ctx context.Context) (ports.Session, error) {
	start := time.Now()
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, observed(ctx, s.metrics, "begin", start, err)
	}
	return &session{tx: tx, metrics: s.metrics}, nil
}

type session struct {
	tx      pgx.Tx
	metrics *database.Metrics
	done    bool
}

func (s *session) Catalog() ports.ProductCatalog {
	return &catalog{tx: s.tx, metrics: s.metrics}
}

func (s *session) Orders() ports.OrderWriter {
	return &orderWriter{tx: s.tx, metrics: s.metrics}
}

func (s *session) Refunds() ports.RefundWriter {
	return &refundWriter{tx: s.tx, metrics: s.metrics}
}

func (s *session) Commit(ctx context.Context) error {
	start := time.Now()
	err := s.tx.Commit(ctx)
	s.done = true
	return observed(ctx, s.metrics, "commit", start, err)
}

func (s *session) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true

	err := s.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return wrap("rollback", err)
}

type catalog struct {
	tx      pgx.Tx
	metrics *database.Metrics
}

func (c *catalog) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	start := time.Now()

	var (
		product domain.Product
		price   string
	)
	err := c.tx.QueryRow(ctx,
		`SELECT product_id, name, quantity, price::text FROM products WHERE product_id = $1 FOR UPDATE`,
		id,
	).Scan(&product.ID, &product.Name, &product.Quantity, &price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, observed(ctx, c.metrics, "select product", start, err)
	}
	c.metrics.RecordQuery(ctx, "select_product", start, nil)

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse product price %q: %w", price, err)
	}
	product.Price = parsed

	return &product, nil
}

func (c *catalog) DecrementStock(ctx context.Context, id string, amount int) error {
	start := time.Now()
	tag, err := c.tx.Exec(ctx,
		`UPDATE products SET quantity = quantity - $2 WHERE product_id = $1 AND quantity >= $2`,
		id, amount,
	)
	if err := observed(ctx, c.metrics, "decrement stock", start, err); err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ports.ErrInsufficientStock
	}
	return nil
}

func (c *catalog) IncrementStock(ctx context.Context, id string, amount int) error {
	start := time.Now()
	tag, err := c.tx.Exec(ctx,
		`UPDATE products SET quantity = quantity + $2 WHERE product_id = $1`,
		id, amount,
	)
	if err := observed(ctx, c.metrics, "increment stock", start, err); err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

type orderWriter struct {
	tx      pgx.Tx
	metrics *database.Metrics
}

func (w *orderWriter) Create(ctx context.Context, order domain.Order) error {
	start := time.Now()
	_, err := w.tx.Exec(ctx, `
		INSERT INTO orders (order_id, customer_id, total_price, order_date, payment_status, order_status, invoice_link)
		VALUES ($1, $2, $3::text::numeric, $4, $5, $6, $7)
	`,
		order.ID,
		order.CustomerID,
		order.TotalPrice.String(),
		order.OrderDate,
		string(order.PaymentStatus),
		int(order.Status),
		order.InvoiceLink,
	)
	return observed(ctx, w.metrics, "insert order", start, err)
}

func (w *orderWriter) AddLineItem(ctx context.Context, item domain.LineItem) error {
	start := time.Now()
	_, err := w.tx.Exec(ctx, `
		INSERT INTO order_items (order_item_id, order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4, $5::text::numeric)
	`,
		item.ID,
		item.OrderID,
		item.ProductID,
		item.Quantity,
		item.PriceAtPurchase.String(),
	)
	return observed(ctx, w.metrics, "insert order item", start, err)
}

func (w *orderWriter) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	start := time.Now()
	order, err := loadOrder(ctx, w.tx, id, true)
	w.metrics.RecordQuery(ctx, "select_order_for_update", start, err)
	return order, err
}

func (w *orderWriter) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	start := time.Now()
	tag, err := w.tx.Exec(ctx, `UPDATE orders SET order_status = $1 WHERE order_id = $2`, int(status), id)
	if err := observed(ctx, w.metrics, "update order status", start, err); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (w *orderWriter) UpdateLineItemQuantity(ctx context.Context, itemID string, quantity int) error {
	start := time.Now()
	tag, err := w.tx.Exec(ctx, `UPDATE order_items SET quantity = $1 WHERE order_item_id = $2`, quantity, itemID)
	if err := observed(ctx, w.metrics, "update order item", start, err); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (w *orderWriter) DeleteLineItem(ctx context.Context, itemID string) error {
	start := time.Now()
	tag, err := w.tx.Exec(ctx, `DELETE FROM order_items WHERE order_item_id = $1`, itemID)
	if err := observed(ctx, w.metrics, "delete order item", start, err); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

type refundWriter struct {
	tx      pgx.Tx
	metrics *database.Metrics
}

const refundColumns = `refund_id, order_id, order_item_id, product_id, quantity, amount::text, reason, status, requested_at, decided_at`

func (w *refundWriter) Create(ctx context.Context, refund domain.Refund) error {
	start := time.Now()
	_, err := w.tx.Exec(ctx, `
		INSERT INTO refunds (refund_id, order_id, order_item_id, product_id, quantity, amount, reason, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8, $9)
	`,
		refund.ID,
		refund.OrderID,
		refund.OrderItemID,
		refund.ProductID,
		refund.Quantity,
		refund.Amount.String(),
		refund.Reason,
		string(refund.Status),
		refund.RequestedAt,
	)
	return observed(ctx, w.metrics, "insert refund", start, err)
}

func (w *refundWriter) GetForUpdate(ctx context.Context, id string) (*domain.Refund, error) {
	start := time.Now()

	refund, err := scanRefund(w.tx.QueryRow(ctx, `SELECT `+refundColumns+` FROM refunds WHERE refund_id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, observed(ctx, w.metrics, "select refund", start, err)
	}
	w.metrics.RecordQuery(ctx, "select_refund", start, nil)

	return refund, nil
}

func (w *refundWriter) ListByOrder(ctx context.Context, orderID string) ([]domain.Refund, error) {
	start := time.Now()

	rows, err := w.tx.Query(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE order_id = $1 ORDER BY requested_at, refund_id FOR UPDATE`,
		orderID,
	)
	if err != nil {
		return nil, observed(ctx, w.metrics, "list refunds", start, err)
	}
	defer rows.Close()

	var refunds []domain.Refund
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, *refund)
	}
	if err := observed(ctx, w.metrics, "list refunds", start, rows.Err()); err != nil {
		return nil, err
	}
	return refunds, nil
}

func scanRefund(row pgx.Row) (*domain.Refund, error) {
	var (
		refund domain.Refund
		amount string
		status string
	)
	err := row.Scan(
		&refund.ID,
		&refund.OrderID,
		&refund.OrderItemID,
		&refund.ProductID,
		&refund.Quantity,
		&amount,
		&refund.Reason,
		&status,
		&refund.RequestedAt,
		&refund.DecidedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse refund amount %q: %w", amount, err)
	}
	refund.Amount = parsed
	refund.Status = domain.RefundStatus(status)

	return &refund, nil
}

func (w *refundWriter) UpdateStatus(ctx context.Context, refund domain.Refund) error {
	start := time.Now()
	tag, err := w.tx.Exec(ctx,
		`UPDATE refunds SET status = $1, decided_at = $2 WHERE refund_id = $3`,
		string(refund.Status), refund.DecidedAt, refund.ID,
	)
	if err := observed(ctx, w.metrics, "update refund", start, err); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}
