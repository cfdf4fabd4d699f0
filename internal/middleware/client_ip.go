package middleware

import (
	"github.com/gin-gonic/gin"

	"otp-gateway/internal/fingerprint"
)

// ClientIP stores gin's resolved client address on the request context.
// gin only honours forwarding headers from proxies passed to
// SetTrustedProxies; with none configured the address is RemoteAddr.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(fingerprint.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
