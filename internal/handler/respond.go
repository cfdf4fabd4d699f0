package handler

import (
	"errors"
	"net/http"

	"otp-gateway/internal/gate"
	"otp-gateway/internal/kv"
	"otp-gateway/internal/logger"
	"otp-gateway/internal/middleware"
	"otp-gateway/internal/provider"
	"otp-gateway/internal/reservation"
	"otp-gateway/internal/token"

	"github.com/gin-gonic/gin"
)

// statusFor maps the error taxonomy onto HTTP. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gate.ErrNoSession),
		errors.Is(err, gate.ErrMissingCredential):
		return http.StatusUnauthorized
	case errors.Is(err, token.ErrInvalidOrExpired):
		return http.StatusForbidden
	case errors.Is(err, gate.ErrMissingRefresh),
		errors.Is(err, gate.ErrMissingID),
		errors.Is(err, gate.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, reservation.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, reservation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, kv.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor keeps internal detail out of responses. Token failures all read
// the same so a caller cannot tell which check failed.
func messageFor(status int, err error) string {
	switch status {
	case http.StatusForbidden:
		return "Invalid or expired token"
	case http.StatusBadGateway:
		return "provider unavailable"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case http.StatusInternalServerError:
		return "internal error"
	}

	switch {
	case errors.Is(err, gate.ErrNoSession):
		return "No session. Request a token first."
	case errors.Is(err, gate.ErrMissingCredential):
		return "Missing token"
	case errors.Is(err, gate.ErrMissingRefresh):
		return "Refresh token required"
	case errors.Is(err, gate.ErrMissingID):
		return "ID required"
	case errors.Is(err, gate.ErrUnknownAction):
		return "Invalid path"
	case errors.Is(err, reservation.ErrConflict):
		return "An active number is already reserved for this session"
	case errors.Is(err, reservation.ErrNotFound):
		return "No active reservation for this number"
	}
	return err.Error()
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)

	fields := map[string]any{
		"status": status,
		"path":   c.Request.URL.Path,
		"error":  err.Error(),
	}
	if id, ok := middleware.RequestIDFromContext(c.Request.Context()); ok {
		fields["request_id"] = id
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields)
	} else {
		logger.Info("request rejected", fields)
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   messageFor(status, err),
	})
}

func resultBody(res *gate.Result) gin.H {
	body := gin.H{"success": res.Success}

	switch {
	case res.Action == gate.ActionAcquire && res.Success:
		body["id"] = res.Reservation.ID
		body["number"] = res.Reservation.Number
		body["expiresAt"] = res.Reservation.ExpiresAt
	case res.Action == gate.ActionAcquire:
		body["error"] = res.Raw
	default:
		body["data"] = res.Raw
		body["released"] = res.Released
	}

	if res.NextToken != "" {
		body["nextToken"] = res.NextToken
	}
	return body
}
