package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	sum := sha256.Sum256([]byte("192.168.1.1|Mozilla/5.0"))

	got := Derive("192.168.1.1", "Mozilla/5.0")

	assert.Equal(t, hex.EncodeToString(sum[:]), got)
	assert.Len(t, got, 64)
	assert.Equal(t, got, Derive("192.168.1.1", "Mozilla/5.0"))
}

func TestDeriveDistinguishesInputs(t *testing.T) {
	base := Derive("192.168.1.1", "Mozilla/5.0")

	assert.NotEqual(t, base, Derive("192.168.1.2", "Mozilla/5.0"))
	assert.NotEqual(t, base, Derive("192.168.1.1", "Chrome/1.0"))
}

func TestDeriveMissingPartsDegradeToUnknown(t *testing.T) {
	assert.Equal(t, Derive("unknown", "unknown"), Derive("", ""))
	assert.Equal(t, Derive("10.0.0.1", "unknown"), Derive("10.0.0.1", ""))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		setupReq func() *http.Request
		wantIP   string
	}{
		{
			name: "forwarding headers ignored",
			setupReq: func() *http.Request {
				req := httptest.NewRequest("GET", "/test", nil)
				req.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.1")
				req.Header.Set("X-Real-IP", "203.0.113.1")
				req.RemoteAddr = "192.168.1.1:12345"
				return req
			},
			wantIP: "192.168.1.1",
		},
		{
			name: "resolved address on context",
			setupReq: func() *http.Request {
				req := httptest.NewRequest("GET", "/test", nil)
				req.RemoteAddr = "10.0.0.2:12345"
				return req.WithContext(WithClientIP(req.Context(), "203.0.113.1"))
			},
			wantIP: "203.0.113.1",
		},
		{
			name: "RemoteAddr only",
			setupReq: func() *http.Request {
				req := httptest.NewRequest("GET", "/test", nil)
				req.RemoteAddr = "192.168.1.1:12345"
				return req
			},
			wantIP: "192.168.1.1",
		},
		{
			name: "IPv6 RemoteAddr",
			setupReq: func() *http.Request {
				req := httptest.NewRequest("GET", "/test", nil)
				req.RemoteAddr = "[2001:db8::1]:443"
				return req
			},
			wantIP: "2001:db8::1",
		},
		{
			name: "nothing available",
			setupReq: func() *http.Request {
				req := httptest.NewRequest("GET", "/test", nil)
				req.RemoteAddr = ""
				return req
			},
			wantIP: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIP, ClientIP(tt.setupReq()))
		})
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "Mozilla/5.0")

	assert.Equal(t, Derive("192.168.1.1", "Mozilla/5.0"), FromRequest(req))
}
