// Package token issues and verifies opaque credentials bound to a
// (session, fingerprint) pair.
//
// Access tokens are single-use: the record lives at a key built from the
// session, the fingerprint and the token, so it is only addressable with the
// full triple, and it is consumed by a DEL whose reply decides the outcome.
// Refresh tokens are stored as a hash carrying their binding and are not
// consumed on use; they expire by TTL only.
//
// Uniqueness is probabilistic and rests on crypto/rand alone (160 bits for
// access tokens, 192 for refresh tokens). No collision check is made.
package token

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"otp-gateway/internal/kv"
	"otp-gateway/internal/logger"
	"otp-gateway/internal/metrics"
	"otp-gateway/internal/utils"
)

const (
	AccessBytes  = 20
	RefreshBytes = 24

	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 2 * time.Hour
)

// ErrInvalidOrExpired covers every verification failure: unknown, consumed,
// expired, bound to another session or fingerprint, or store unreachable.
var ErrInvalidOrExpired = errors.New("invalid or expired token")

type Issuer struct {
	store      kv.Store
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Issuer)

func WithAccessTTL(d time.Duration) Option {
	return func(i *Issuer) { i.accessTTL = d }
}

func WithRefreshTTL(d time.Duration) Option {
	return func(i *Issuer) { i.refreshTTL = d }
}

func NewIssuer(store kv.Store, opts ...Option) *Issuer {
	i := &Issuer{
		store:      store,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// AccessTTL is the lifetime of access tokens, reported to clients as expiresIn.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func accessKey(sessionID, fp, tok string) string {
	return "token:" + sessionID + ":" + fp + ":" + tok
}

func refreshKey(tok string) string {
	return "refresh:" + tok
}

// WellFormedAccess reports whether tok could have been produced by Issue.
func WellFormedAccess(tok string) bool {
	return utils.IsHex(tok, AccessBytes)
}

// WellFormedRefresh reports whether tok could have been produced by IssueRefresh.
func WellFormedRefresh(tok string) bool {
	return utils.IsHex(tok, RefreshBytes)
}

// Issue mints an access token bound to sessionID and fp.
func (i *Issuer) Issue(ctx context.Context, sessionID, fp string) (string, error) {
	tok, err := utils.RandomHex(AccessBytes)
	if err != nil {
		return "", err
	}

	if err := i.store.Set(ctx, accessKey(sessionID, fp, tok), "1", i.accessTTL); err != nil {
		return "", fmt.Errorf("token: store access token: %w", err)
	}

	metrics.TokensIssued.WithLabelValues("access").Inc()
	return tok, nil
}

// Verify consumes the access token. It returns nil at most once per issued
// token; any later call, or a call with another session or fingerprint,
// returns ErrInvalidOrExpired.
func (i *Issuer) Verify(ctx context.Context, sessionID, fp, tok string) error {
	if sessionID == "" || fp == "" || !WellFormedAccess(tok) {
		metrics.TokenVerifications.WithLabelValues("access", "malformed").Inc()
		return ErrInvalidOrExpired
	}

	removed, err := i.store.Delete(ctx, accessKey(sessionID, fp, tok))
	if err != nil {
		logger.Error("access token verification failed closed", map[string]any{
			"error": err.Error(),
		})
		metrics.TokenVerifications.WithLabelValues("access", "store_error").Inc()
		return ErrInvalidOrExpired
	}
	if !removed {
		metrics.TokenVerifications.WithLabelValues("access", "miss").Inc()
		return ErrInvalidOrExpired
	}

	metrics.TokenVerifications.WithLabelValues("access", "ok").Inc()
	return nil
}

// IssueRefresh mints a refresh token bound to sessionID and fp.
func (i *Issuer) IssueRefresh(ctx context.Context, sessionID, fp string) (string, error) {
	tok, err := utils.RandomHex(RefreshBytes)
	if err != nil {
		return "", err
	}

	key := refreshKey(tok)
	fields := map[string]string{
		"sessionId":   sessionID,
		"fingerprint": fp,
		"issuedAt":    strconv.FormatInt(i.now().UnixMilli(), 10),
	}

	if err := i.store.HSet(ctx, key, fields); err != nil {
		return "", fmt.Errorf("token: store refresh token: %w", err)
	}

	// A hash without TTL would never expire; drop it if EXPIRE did not land.
	ok, err := i.store.Expire(ctx, key, i.refreshTTL)
	if err != nil || !ok {
		if _, delErr := i.store.Delete(ctx, key); delErr != nil {
			logger.Error("failed to drop refresh token without ttl", map[string]any{
				"error": delErr.Error(),
			})
		}
		if err == nil {
			err = errors.New("refresh token vanished before expire")
		}
		return "", fmt.Errorf("token: expire refresh token: %w", err)
	}

	metrics.TokensIssued.WithLabelValues("refresh").Inc()
	return tok, nil
}

// VerifyRefresh checks the refresh token without consuming it.
func (i *Issuer) VerifyRefresh(ctx context.Context, sessionID, fp, tok string) error {
	if sessionID == "" || fp == "" || !WellFormedRefresh(tok) {
		metrics.TokenVerifications.WithLabelValues("refresh", "malformed").Inc()
		return ErrInvalidOrExpired
	}

	fields, err := i.store.HGetAll(ctx, refreshKey(tok))
	if errors.Is(err, kv.ErrNotFound) {
		metrics.TokenVerifications.WithLabelValues("refresh", "miss").Inc()
		return ErrInvalidOrExpired
	}
	if err != nil {
		logger.Error("refresh token verification failed closed", map[string]any{
			"error": err.Error(),
		})
		metrics.TokenVerifications.WithLabelValues("refresh", "store_error").Inc()
		return ErrInvalidOrExpired
	}

	if !equal(fields["sessionId"], sessionID) || !equal(fields["fingerprint"], fp) {
		metrics.TokenVerifications.WithLabelValues("refresh", "binding_mismatch").Inc()
		return ErrInvalidOrExpired
	}

	metrics.TokenVerifications.WithLabelValues("refresh", "ok").Inc()
	return nil
}

// Pair is what the issuance endpoint hands to a client.
type Pair struct {
	Access  string
	Refresh string
}

// IssuePair mints an access and a refresh token for the same binding.
func (i *Issuer) IssuePair(ctx context.Context, sessionID, fp string) (Pair, error) {
	access, err := i.Issue(ctx, sessionID, fp)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefresh(ctx, sessionID, fp)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
