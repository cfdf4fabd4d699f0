package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otp-gateway/internal/fingerprint"
	"otp-gateway/internal/kv"
	"otp-gateway/internal/kv/kvtest"
)

const testSession = "c2Vzc2lvbi1pZC1mb3ItdGVzdHMtYWJjZGVmZ2hpams"

var (
	fpA = fingerprint.Derive("192.168.1.1", "Mozilla/5.0")
	fpB = fingerprint.Derive("10.0.0.1", "Mozilla/5.0")
)

func TestIssueThenVerifyExactlyOnce(t *testing.T) {
	store, _ := kvtest.New(t)
	issuer := NewIssuer(store)
	ctx := context.Background()

	tok, err := issuer.Issue(ctx, testSession, fpA)
	require.NoError(t, err)
	assert.True(t, WellFormedAccess(tok))

	require.NoError(t, issuer.Verify(ctx, testSession, fpA, tok))
	assert.ErrorIs(t, issuer.Verify(ctx, testSession, fpA, tok), ErrInvalidOrExpired)
}

func TestVerifyRejectsForeignBinding(t *testing.T) {
	store, srv := kvtest.New(t)
	issuer := NewIssuer(store)
	ctx := context.Background()

	tok, err := issuer.Issue(ctx, testSession, fpA)
	require.NoError(t, err)

	assert.ErrorIs(t, issuer.Verify(ctx, testSession, fpB, tok), ErrInvalidOrExpired)
	assert.ErrorIs(t, issuer.Verify(ctx, "b3RoZXItc2Vzc2lvbi1pZC1mb3ItdGVzdHMtYWJjZGVm", fpA, tok), ErrInvalidOrExpired)

	// Failed attempts must not consume the token.
	assert.True(t, srv.Exists(kvtest.Prefix+accessKey(testSession, fpA, tok)))
	require.NoError(t, issuer.Verify(ctx, testSession, fpA, tok))
}

func TestVerifyAfterTTL(t *testing.T) {
	store, srv := kvtest.New(t)
	issuer := NewIssuer(store)
	ctx := context.Background()

	tok, err := issuer.Issue(ctx, testSession, fpA)
	require.NoError(t, err)
	assert.Equal(t, 900*time.Second, srv.TTL(kvtest.Prefix+accessKey(testSession, fpA, tok)))

	srv.FastForward(900 * time.Second)

	assert.ErrorIs(t, issuer.Verify(ctx, testSession, fpA, tok), ErrInvalidOrExpired)
}

func TestVerifyMalformed(t *testing.T) {
	store, _ := kvtest.New(t)
	issuer := NewIssuer(store)
	ctx := context.Background()

	tests := []struct {
		name    string
		session string
		fp      string
		tok     string
	}{
		{name: "empty token", session: testSession, fp: fpA, tok: ""},
		{name: "short token", session: testSession, fp: fpA, tok: "abcd"},
		{name: "separator in token", session: testSession, fp: fpA, tok: "0123456789012345678901234567890123456:*"},
		{name: "empty session", session: "", fp: fpA, tok: "0123456789abcdef0123456789abcdef01234567"},
		{name: "empty fingerprint", session: testSession, fp: "", tok: "0123456789abcdef0123456789abcdef01234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, issuer.Verify(ctx, tt.session, tt.fp, tt.tok), ErrInvalidOrExpired)
		})
	}
}

func TestVerifyFailsClosedOnOutage(t *testing.T) {
	store, srv := kvtest.New(t)
	issuer := NewIssuer(store)
	ctx := context.Background()

	tok, err := issuer.Issue(ctx, testSession, fpA)
	require.NoError(t, err)

	srv.Close()

	assert.ErrorIs(t, issuer.Verify(ctx, testSession, fpA, tok), ErrInvalidOrExpired)

	_, err = issuer.Issue(ctx, testSession, fpA)
	assert.ErrorIs(t, err, kv.ErrUnavailable)
}

func TestRefreshIsReusableUntilExpiry(t *testing.T) {
	store, srv := kvtest.New(t)
	issuer := NewIssuer(store)
	ctx := context.Background()

	tok, err := issuer.IssueRefresh(ctx, testSession, fpA)
	require.NoError(t, err)
	assert.True(t, WellFormedRefresh(tok))
	assert.Equal(t, 7200*time.Second, srv.TTL(kvtest.Prefix+refreshKey(tok)))

	require.NoError(t, issuer.VerifyRefresh(ctx, testSession, fpA, tok))
	require.NoError(t, issuer.VerifyRefresh(ctx, testSession, fpA, tok))

	assert.ErrorIs(t, issuer.VerifyRefresh(ctx, testSession, fpB, tok), ErrInvalidOrExpired)

	srv.FastForward(7200 * time.Second)
	assert.ErrorIs(t, issuer.VerifyRefresh(ctx, testSession, fpA, tok), ErrInvalidOrExpired)
}

func TestRefreshCannotBeUsedAsAccess(t *testing.T) {
	store, _ := kvtest.New(t)
	issuer := NewIssuer(store)
	ctx := context.Background()

	pair, err := issuer.IssuePair(ctx, testSession, fpA)
	require.NoError(t, err)

	assert.ErrorIs(t, issuer.Verify(ctx, testSession, fpA, pair.Refresh), ErrInvalidOrExpired)
	assert.ErrorIs(t, issuer.VerifyRefresh(ctx, testSession, fpA, pair.Access), ErrInvalidOrExpired)
}

func TestCustomTTL(t *testing.T) {
	store, srv := kvtest.New(t)
	issuer := NewIssuer(store, WithAccessTTL(time.Minute), WithRefreshTTL(time.Hour))
	ctx := context.Background()

	assert.Equal(t, time.Minute, issuer.AccessTTL())

	pair, err := issuer.IssuePair(ctx, testSession, fpA)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, srv.TTL(kvtest.Prefix+accessKey(testSession, fpA, pair.Access)))
	assert.Equal(t, time.Hour, srv.TTL(kvtest.Prefix+refreshKey(pair.Refresh)))
}

// expireFailingStore drops every EXPIRE on the floor.
type expireFailingStore struct {
	kv.Store
	deleted []string
}

func (s *expireFailingStore) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("boom")
}

func (s *expireFailingStore) Delete(ctx context.Context, key string) (bool, error) {
	s.deleted = append(s.deleted, key)
	return s.Store.Delete(ctx, key)
}

func TestIssueRefreshDropsHashWhenExpireFails(t *testing.T) {
	inner, srv := kvtest.New(t)
	store := &expireFailingStore{Store: inner}
	issuer := NewIssuer(store)

	_, err := issuer.IssueRefresh(context.Background(), testSession, fpA)
	require.Error(t, err)

	require.Len(t, store.deleted, 1)
	assert.False(t, srv.Exists(kvtest.Prefix+store.deleted[0]))
}
