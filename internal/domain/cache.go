package domain

import (
	"context"
	"io"
	"time"
)

// RateCache holds the current conversion rate snapshot. Order creation reads
// it once and freezes the result; later rate changes never reprice an order.
type RateCache interface {
	Set(ctx context.Context, r Rate) error
	Get(ctx context.Context) (Rate, error)
}

// RateLimiter throttles request rates per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locks keyed by string. Acquire returns an
// unlock function, or ErrLockHeld when another party holds the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SignalBus is a lightweight publish/subscribe fabric for marketplace
// events (new listings, funded bids, settlements).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter stores objects (sticker images, metadata documents).
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves stored objects and resolves public URLs for them.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	PresignGet(ctx context.Context, path string, expiry time.Duration) (string, error)
}
