package app

import (
	"context"
	"net/http"

	"otp-gateway/internal/audit"
	"otp-gateway/internal/config"
	"otp-gateway/internal/gate"
	"otp-gateway/internal/handler"
	"otp-gateway/internal/kv"
	"otp-gateway/internal/middleware"
	"otp-gateway/internal/provider"
	"otp-gateway/internal/provider/smsactivate"
	"otp-gateway/internal/reservation"
	"otp-gateway/internal/session"
	"otp-gateway/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	store := kv.NewRedisStore(infra.Redis.Client, cfg.RedisPrefix)

	smsProvider, err := smsactivate.New(
		cfg.ProviderBaseURL,
		cfg.ProviderAPIKey,
		cfg.ProviderService,
		cfg.ProviderCountry,
		cfg.ProviderTimeout,
	)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	registry := provider.NewRegistry(smsProvider)
	active, err := registry.Get(cfg.ProviderName)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	var recorder audit.Recorder = audit.Nop{}
	if infra.DB != nil {
		recorder = audit.NewDBRecorder(infra.DB)
	}

	cookies := session.DefaultCookieOptions()
	cookies.Secure = cfg.CookieSecure

	g := gate.New(
		session.NewManager(cookies),
		token.NewIssuer(store,
			token.WithAccessTTL(cfg.AccessTokenTTL),
			token.WithRefreshTTL(cfg.RefreshTokenTTL),
		),
		reservation.NewManager(store, reservation.WithTTL(cfg.ReservationTTL)),
		active,
		recorder,
	)

	gatewayHandler := handler.NewHandler(g)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		_ = infra.Close()
		return nil, nil, err
	}
	router.Use(gin.Recovery())
	router.Use(middleware.ClientIP())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog())

	// Only token issuance is rate limited.
	router.Use(middleware.GinHTTP(middleware.RateLimit(middleware.RateLimitConfig{
		Requests: cfg.RateLimitRequests,
		Window:   cfg.RateLimitWindow,
		Match:    handler.IsIssuance,
	})))

	gatewayHandler.RegisterRoutes(router)

	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, infra.Close, nil
}
