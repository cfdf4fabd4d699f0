// Package fingerprint derives a stable, non-reversible client identity from
// the network address and user agent of a request.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// Unknown replaces a missing IP or user agent.
const Unknown = "unknown"

type clientIPContextKeyType struct{}

var clientIPKey = clientIPContextKeyType{}

// WithClientIP returns a copy of ctx carrying the client address resolved
// by the HTTP boundary under its trusted-proxy policy.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// Derive returns the hex SHA-256 of ip + "|" + userAgent.
func Derive(ip, userAgent string) string {
	if ip == "" {
		ip = Unknown
	}
	if userAgent == "" {
		userAgent = Unknown
	}
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}

// FromRequest derives the fingerprint of r.
func FromRequest(r *http.Request) string {
	return Derive(ClientIP(r), r.UserAgent())
}

// ClientIP returns the address set with WithClientIP, else the host part of
// RemoteAddr. Forwarding headers are never read here; only a trusted proxy
// may speak for the client.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok {
		if ip = strings.TrimSpace(ip); ip != "" {
			return ip
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return Unknown
}
