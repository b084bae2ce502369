// Package cache caches finished reconstruction payloads so a completed
// job is only replayed once. Redis backs it in deployed environments; a
// local bolt file backs it everywhere else.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented cache with per-entry TTL. A miss is not an
// error: Get returns found=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// DefaultTTL is applied when a caller passes a zero TTL.
const DefaultTTL = 15 * time.Minute
