package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dejobratic/petstore/internal/orders/ports"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown key", func(t *testing.T) {
		store := NewStore(0)
		resp, err := store.Get(ctx, "missing")
		if err != nil || resp != nil {
			t.Errorf("expected nil, nil; got %v, %v", resp, err)
		}
	})

	t.Run("first save wins", func(t *testing.T) {
		store := NewStore(0)
		_ = store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, OrderID: "o1"})
		_ = store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, OrderID: "o2"})

		resp, err := store.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if resp == nil || resp.OrderID != "o1" {
			t.Errorf("expected first response o1, got %+v", resp)
		}
	})

	t.Run("entries expire after ttl", func(t *testing.T) {
		store := NewStore(time.Minute)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }

		_ = store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, OrderID: "o1"})

		now = now.Add(2 * time.Minute)
		if resp, _ := store.Get(ctx, "k"); resp != nil {
			t.Errorf("expected expired entry to be gone, got %+v", resp)
		}

		_ = store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, OrderID: "o2"})
		if resp, _ := store.Get(ctx, "k"); resp == nil || resp.OrderID != "o2" {
			t.Errorf("expected key to be reusable after expiry, got %+v", resp)
		}
	})
}
