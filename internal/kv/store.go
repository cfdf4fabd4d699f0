package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key or hash does not exist.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps every failure to reach the store.
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Store is the small surface of a TTL-capable key-value service the gateway
// needs. Every method is a single-key operation and is atomic at the store.
// Multi-call sequences are not.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes only when key is absent and reports whether it wrote.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	// Delete reports whether a key was actually removed.
	Delete(ctx context.Context, key string) (bool, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
