package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinHTTP adapts a net/http middleware to Gin. If mw answers the request
// without calling its next handler, the Gin chain stops there.
func GinHTTP(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false

		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})

		mw(next).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}
