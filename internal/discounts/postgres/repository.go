package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/petstore/internal/database"
	"github.com/dejobratic/petstore/internal/discounts"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	pool    *pgxpool.Pool
	metrics *database.Metrics
}

func NewRepository(pool *pgxpool.Pool, metrics *database.Metrics) *Repository {
	return &Repository{pool: pool, metrics: metrics}
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	start := time.Now()

	var (
		product domain.Product
		price   string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT product_id, name, quantity, price::text FROM products WHERE product_id = $1`, id,
	).Scan(&product.ID, &product.Name, &product.Quantity, &price)
	r.metrics.RecordQuery(ctx, "get_discount_product", start, err)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get product", err)
	}

	product.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price of product %s: %w", id, err)
	}
	return &product, nil
}

func (r *Repository) Create(ctx context.Context, d discounts.Discount) error {
	start := time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO discounts (discount_id, product_id, rate, discounted_price, start_date, end_date, created_at)
		VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5, $6, $7)`,
		d.ID, d.ProductID, d.Rate.String(), d.DiscountedPrice.String(), d.StartDate, d.EndDate, d.CreatedAt,
	)
	r.metrics.RecordQuery(ctx, "create_discount", start, err)
	return wrap("create discount", err)
}

func (r *Repository) WishlistEmails(ctx context.Context, productID string) ([]string, error) {
	start := time.Now()
	rows, err := r.pool.Query(ctx, `
		SELECT c.email
		FROM wishlist_items w
		JOIN customers c ON c.customer_id = w.customer_id
		WHERE w.product_id = $1
		ORDER BY c.email`, productID)
	if err != nil {
		r.metrics.RecordQuery(ctx, "list_wishlist_emails", start, err)
		return nil, wrap("list wishlist emails", err)
	}

	emails, err := pgx.CollectRows(rows, pgx.RowTo[string])
	r.metrics.RecordQuery(ctx, "list_wishlist_emails", start, err)
	if err != nil {
		return nil, wrap("list wishlist emails", err)
	}
	return emails, nil
}

func wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	if database.IsTransient(err) {
		return fmt.Errorf("%s: %w: %w", operation, ports.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
