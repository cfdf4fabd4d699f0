package handler

import (
	"net/http"
	"time"

	"otp-gateway/internal/gate"
	"otp-gateway/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	gate *gate.Gate
	now  func() time.Time
}

func NewHandler(g *gate.Gate) *Handler {
	return &Handler{
		gate: g,
		now:  time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	r.POST("/v1/token", h.issueToken)
	r.POST("/v1/token/refresh", h.refreshToken)

	numbers := r.Group("/v1/numbers")
	numbers.POST("", h.acquire)
	numbers.GET("/:id", h.status)
	numbers.DELETE("/:id", h.release)

	r.GET("/api", h.legacy)

	for _, route := range r.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "Server is running",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"token"`
}

func (h *Handler) issueToken(c *gin.Context) {
	issued, eff, err := h.gate.IssueTokens(c.Request)
	eff.Apply(c.Writer)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"accessToken":  issued.AccessToken,
		"refreshToken": issued.RefreshToken,
		"expiresIn":    issued.ExpiresIn,
		"sessionId":    issued.SessionID,
	})
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req refreshRequest
	if c.Request.Method == http.MethodGet {
		req.RefreshToken = c.Query("token")
	} else if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
			return
		}
	}

	out, eff, err := h.gate.RefreshAccess(c.Request, req.RefreshToken)
	eff.Apply(c.Writer)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"accessToken": out.AccessToken,
		"expiresIn":   out.ExpiresIn,
	})
}

func (h *Handler) acquire(c *gin.Context) {
	h.execute(c, gate.ActionAcquire, "")
}

func (h *Handler) status(c *gin.Context) {
	h.execute(c, gate.ActionStatus, c.Param("id"))
}

func (h *Handler) release(c *gin.Context) {
	h.execute(c, gate.ActionRelease, c.Param("id"))
}

func (h *Handler) execute(c *gin.Context, action gate.Action, id string) {
	res, eff, err := h.gate.Execute(c.Request, action, id)
	eff.Apply(c.Writer)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resultBody(res))
}
