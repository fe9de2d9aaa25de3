package ports

import "context"

// StoredResponse contains the response data to replay for a reused key.
type StoredResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
	OrderID    string `json:"order_id"`
}

// IdempotencyStore lets order creation be retried by clients without placing
// the order twice. Get returns nil, nil for unknown keys; Save keeps the first
// response stored for a key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, response StoredResponse) error
}
