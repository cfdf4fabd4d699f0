// Package audit keeps an append-only trail of reservation lifecycle events.
// Recording is best-effort: a failed write is logged and never fails the
// request that produced it.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

type Kind string

const (
	Acquired Kind = "acquired"
	// Completed means the provider reported a terminal status.
	Completed Kind = "completed"
	Released  Kind = "released"
	// Abandoned is a number cancelled at the provider because another request
	// of the same session won the reservation first.
	Abandoned Kind = "abandoned"
)

type Event struct {
	Kind         Kind
	SessionID    string
	Provider     string
	ActivationID string
	Number       string
	Detail       string
	RequestID    string
}

// Recorder persists events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

// SessionHash is what gets stored instead of the session id, which is a
// bearer secret.
func SessionHash(sessionID string) string {
	sum := sha256.Sum256([]byte("session|" + sessionID))
	return hex.EncodeToString(sum[:])
}
