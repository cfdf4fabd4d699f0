// Package reservation tracks which rented number a session currently holds.
//
// A session holds at most one live reservation. Acquire claims the slot with
// SET NX so two writers racing on the same session cannot both win; the
// gate's preceding Lookup is what keeps a session from renting a second
// number at the provider in the common, serial case.
package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"otp-gateway/internal/kv"
	"otp-gateway/internal/logger"
)

const DefaultTTL = 15 * time.Minute

var (
	ErrConflict = errors.New("session already holds an active number")
	ErrNotFound = errors.New("no active reservation for this number")
)

// Reservation is the exclusive, temporary claim of one provider number.
type Reservation struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	ExpiresAt int64  `json:"expiresAt"` // epoch millis
}

// Expired reports whether the reservation is past its expiry at now.
func (r Reservation) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.UnixMilli()
}

type Manager struct {
	store kv.Store
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Manager)

func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func key(sessionID string) string {
	return "reservation:" + sessionID
}

// Acquire records that sessionID now holds number id. The store record gets
// the same TTL as expiresAt so it cleans itself up even if never read again.
func (m *Manager) Acquire(ctx context.Context, sessionID, id, number string) (*Reservation, error) {
	if sessionID == "" || id == "" {
		return nil, fmt.Errorf("reservation: session and id are required")
	}

	res := &Reservation{
		ID:        id,
		Number:    number,
		ExpiresAt: m.now().Add(m.ttl).UnixMilli(),
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("reservation: failed to marshal: %w", err)
	}

	// The second attempt only happens after Lookup removed a record whose
	// expiresAt passed before the store evicted it.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := m.store.SetNX(ctx, key(sessionID), string(data), m.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return res, nil
		}

		if _, err := m.Lookup(ctx, sessionID); err == nil {
			return nil, ErrConflict
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrConflict
}

// Lookup returns the live reservation of sessionID. A record past its
// expiresAt is deleted and reported as ErrNotFound.
func (m *Manager) Lookup(ctx context.Context, sessionID string) (*Reservation, error) {
	raw, err := m.store.Get(ctx, key(sessionID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var res Reservation
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		logger.Warn("dropping unreadable reservation", map[string]any{
			"error": err.Error(),
		})
		if _, delErr := m.store.Delete(ctx, key(sessionID)); delErr != nil {
			return nil, delErr
		}
		return nil, ErrNotFound
	}

	if res.Expired(m.now()) {
		if _, err := m.store.Delete(ctx, key(sessionID)); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return &res, nil
}

// Holds returns the live reservation of sessionID only if it is for id.
func (m *Manager) Holds(ctx context.Context, sessionID, id string) (*Reservation, error) {
	res, err := m.Lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if res.ID != id {
		return nil, ErrNotFound
	}
	return res, nil
}

// Release drops the reservation of sessionID. Releasing nothing is not an error.
func (m *Manager) Release(ctx context.Context, sessionID string) error {
	_, err := m.store.Delete(ctx, key(sessionID))
	return err
}
