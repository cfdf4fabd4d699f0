// Package kvtest starts an in-process Redis for tests of packages built on kv.Store.
package kvtest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"otp-gateway/internal/kv"
)

// Prefix is the key prefix used by stores returned from New.
const Prefix = "test:"

// New returns a store backed by a fresh miniredis instance. Use the returned
// server to inspect raw keys, advance TTLs with FastForward, or Close it to
// simulate an outage.
func New(t testing.TB) (*kv.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:       srv.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return kv.NewRedisStore(client, Prefix), srv
}
