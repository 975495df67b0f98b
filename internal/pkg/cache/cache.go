package cache

import (
	"context"
	"time"
)

// Cache is a small get/set surface used for best-effort deduplication of
// provider webhook deliveries. Losing entries is always safe: the order
// store's paid guard is the real idempotence mechanism.
type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get returns the stored value, or "" when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	GenerateKey(operation, key string) string
}
