package handler

import (
	"net/http"
	"strings"

	"otp-gateway/internal/gate"

	"github.com/gin-gonic/gin"
)

const (
	pathHealth       = "health"
	pathGetToken     = "getToken"
	pathRefreshToken = "refreshToken"
	pathGetNumber    = "getNumber"
	pathGetOtp       = "getOtp"
	pathCancelNumber = "cancelNumber"
)

// legacy serves the single-endpoint API, GET /api?path=<name>, that existing
// clients speak. It maps every path onto the same gate operations as the
// /v1 routes.
func (h *Handler) legacy(c *gin.Context) {
	switch c.Query("path") {
	case pathHealth:
		h.health(c)
	case pathGetToken:
		h.issueToken(c)
	case pathRefreshToken:
		h.refreshToken(c)
	case pathGetNumber:
		h.execute(c, gate.ActionAcquire, "")
	case pathGetOtp:
		h.execute(c, gate.ActionStatus, c.Query("id"))
	case pathCancelNumber:
		h.execute(c, gate.ActionRelease, c.Query("id"))
	default:
		h.fail(c, gate.ErrUnknownAction)
	}
}

// IsIssuance reports whether r asks for a new access token. Those requests
// need no credential and are the ones worth rate limiting.
func IsIssuance(r *http.Request) bool {
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/v1/token", "/v1/token/refresh":
		return true
	case "/api":
		p := r.URL.Query().Get("path")
		return p == pathGetToken || p == pathRefreshToken
	}
	return false
}
