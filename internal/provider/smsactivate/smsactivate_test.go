package smsactivate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otp-gateway/internal/provider"
)

type recorded struct {
	query url.Values
}

func newServer(t *testing.T, status int, body string) (*Provider, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.query = r.URL.Query()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	p, err := New(srv.URL+"/stubs/handler_api.php", "key-1", "wa", "51", time.Second)
	require.NoError(t, err)
	return p, rec
}

func TestNewValidates(t *testing.T) {
	_, err := New("", "k", "wa", "51", time.Second)
	assert.Error(t, err)
	_, err = New("not a url", "k", "wa", "51", time.Second)
	assert.Error(t, err)
	_, err = New("https://example.test/handler_api.php", "", "wa", "51", time.Second)
	assert.Error(t, err)

	p, err := New("https://example.test/handler_api.php", "k", "wa", "51", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "smsactivate", p.Name())
}

func TestAcquire(t *testing.T) {
	p, rec := newServer(t, http.StatusOK, "ACCESS_NUMBER:42:51987654321\n")

	n, err := p.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, provider.Number{ID: "42", Number: "51987654321"}, n)
	assert.Equal(t, "getNumber", rec.query.Get("action"))
	assert.Equal(t, "key-1", rec.query.Get("api_key"))
	assert.Equal(t, "wa", rec.query.Get("service"))
	assert.Equal(t, "51", rec.query.Get("country"))
}

func TestAcquireRejected(t *testing.T) {
	tests := []string{"NO_NUMBERS", "NO_BALANCE", "ACCESS_NUMBER:42", "ACCESS_NUMBER::519"}

	for _, body := range tests {
		t.Run(body, func(t *testing.T) {
			p, _ := newServer(t, http.StatusOK, body)

			_, err := p.Acquire(context.Background())

			var rejected *provider.RejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, body, rejected.Raw)
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		body string
		done bool
	}{
		{body: "STATUS_WAIT_CODE", done: false},
		{body: "STATUS_OK:123456", done: true},
		{body: "STATUS_CANCEL", done: true},
		{body: "NO_ACTIVATION", done: true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			p, rec := newServer(t, http.StatusOK, tt.body)

			st, err := p.Status(context.Background(), "42")
			require.NoError(t, err)

			assert.Equal(t, provider.Status{Raw: tt.body, Done: tt.done}, st)
			assert.Equal(t, "getStatus", rec.query.Get("action"))
			assert.Equal(t, "42", rec.query.Get("id"))
		})
	}
}

func TestRelease(t *testing.T) {
	tests := []struct {
		body     string
		released bool
	}{
		{body: "ACCESS_CANCEL", released: true},
		{body: "NO_ACTIVATION", released: true},
		{body: "EARLY_CANCEL_DENIED", released: false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			p, rec := newServer(t, http.StatusOK, tt.body)

			rel, err := p.Release(context.Background(), "42")
			require.NoError(t, err)

			assert.Equal(t, provider.Release{Raw: tt.body, Released: tt.released}, rel)
			assert.Equal(t, "setStatus", rec.query.Get("action"))
			assert.Equal(t, "8", rec.query.Get("status"))
		})
	}
}

func TestNon2xxIsUnavailable(t *testing.T) {
	p, _ := newServer(t, http.StatusBadGateway, "upstream down")

	_, err := p.Status(context.Background(), "42")
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p, err := New(base+"/handler_api.php", "k", "wa", "51", time.Second)
	require.NoError(t, err)

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, provider.ErrUnavailable)

	var rejected *provider.RejectedError
	assert.False(t, errors.As(err, &rejected))
}
