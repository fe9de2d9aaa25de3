package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/petstore/internal/database"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository serves order reads outside a placement transaction.
type Repository struct {
	pool    *pgxpool.Pool
	metrics *database.Metrics
}

func NewRepository(pool *pgxpool.Pool, metrics *database.Metrics) *Repository {
	return &Repository{pool: pool, metrics: metrics}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	start := time.Now()
	order, err := loadOrder(ctx, r.pool, id, false)
	r.metrics.RecordQuery(ctx, "get_order_by_id", start, err)
	return order, err
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string, filter ports.ListFilter) ([]domain.Order, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1 AND ($2::smallint IS NULL OR order_status = $2)
		ORDER BY order_date DESC, order_id
		LIMIT $3 OFFSET $4
	`

	var statusFilter *int
	if filter.Status != nil {
		s := int(*filter.Status)
		statusFilter = &s
	}

	offset := (page - 1) * pageSize

	start := time.Now()
	rows, err := r.pool.Query(ctx, query, customerID, statusFilter, pageSize, offset)
	if err := observed(ctx, r.metrics, "list orders by customer", start, err); err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, wrap("scan order", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap("iterate orders", err)
	}

	ids := make([]string, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
	}

	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.LineItem{}
		}
	}

	return orders, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	start := time.Now()
	result, err := r.pool.Exec(ctx, `UPDATE orders SET order_status = $1 WHERE order_id = $2`, int(status), id)
	if err := observed(ctx, r.metrics, "update order status", start, err); err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	return nil
}

// CustomerDirectory resolves customer contact details from the customers table.
type CustomerDirectory struct {
	pool *pgxpool.Pool
}

func NewCustomerDirectory(pool *pgxpool.Pool) *CustomerDirectory {
	return &CustomerDirectory{pool: pool}
}

func (d *CustomerDirectory) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	err := d.pool.QueryRow(ctx,
		`SELECT customer_id, email, name FROM customers WHERE customer_id = $1`,
		id,
	).Scan(&customer.ID, &customer.Email, &customer.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, wrap("select customer", err)
	}

	return &customer, nil
}
