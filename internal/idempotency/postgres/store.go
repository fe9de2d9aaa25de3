package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps idempotency responses in the idempotency_keys table. Entries
// older than ttl are ignored on read; a zero ttl keeps them forever.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	query := `
		SELECT status_code, response_body, order_id
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND ($2::bigint = 0 OR created_at > NOW() - make_interval(secs => $2::bigint))
	`

	var resp ports.StoredResponse
	err := s.pool.QueryRow(ctx, query, key, int64(s.ttl.Seconds())).Scan(
		&resp.StatusCode,
		&resp.Body,
		&resp.OrderID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select idempotency key: %w", err)
	}

	return &resp, nil
}

func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	query := `
		INSERT INTO idempotency_keys (idempotency_key, status_code, response_body, order_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO UPDATE
		SET status_code = EXCLUDED.status_code,
		    response_body = EXCLUDED.response_body,
		    order_id = EXCLUDED.order_id,
		    created_at = NOW()
		WHERE $5::bigint > 0
		  AND idempotency_keys.created_at <= NOW() - make_interval(secs => $5::bigint)
	`

	_, err := s.pool.Exec(ctx, query, key, response.StatusCode, response.Body, response.OrderID, int64(s.ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("insert idempotency key: %w", err)
	}

	return nil
}
