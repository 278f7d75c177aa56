package cache

import (
	"context"
	"time"
)

// BytesCache stores opaque values with an optional TTL. A zero TTL never expires.
// A missing key is reported with ok=false and a nil error.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

var (
	_ BytesCache = (*TTLCache)(nil)
	_ BytesCache = (*RedisCache)(nil)
)
