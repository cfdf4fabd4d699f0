package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort  string
	LogLevel string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	RedisPrefix   string

	// DatabaseDSN is optional. When empty the reservation audit trail is disabled.
	DatabaseDSN string

	ProviderName    string
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderService string
	ProviderCountry string
	ProviderTimeout time.Duration

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ReservationTTL  time.Duration

	// CookieSecure must stay true outside of local plain-HTTP development.
	CookieSecure bool

	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers
	// are believed. Empty means the peer address is always the client.
	TrustedProxies []string

	// RateLimitRequests of zero disables the issuance rate limit.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	MetricsEnabled bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 20)
	v.SetDefault("redis.prefix", "otpgw:")

	v.SetDefault("provider.name", "smsactivate")
	v.SetDefault("provider.baseURL", "https://firexotp.com/stubs/handler_api.php")
	v.SetDefault("provider.service", "wa")
	v.SetDefault("provider.country", "51")
	v.SetDefault("provider.timeout", 10*time.Second)

	v.SetDefault("token.accessTTL", 15*time.Minute)
	v.SetDefault("token.refreshTTL", 2*time.Hour)
	v.SetDefault("reservation.ttl", 15*time.Minute)

	v.SetDefault("cookie.secure", true)

	v.SetDefault("ratelimit.requests", 30)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("metrics.enabled", true)
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("app.port", "APP_PORT")
	_ = v.BindEnv("log.level", "LOG_LEVEL")

	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("redis.poolSize", "REDIS_POOL_SIZE")
	_ = v.BindEnv("redis.prefix", "REDIS_KEY_PREFIX")

	_ = v.BindEnv("database.dsn", "DATABASE_DSN")

	_ = v.BindEnv("provider.name", "PROVIDER_NAME")
	_ = v.BindEnv("provider.baseURL", "PROVIDER_BASE_URL")
	_ = v.BindEnv("provider.apiKey", "API_KEY")
	_ = v.BindEnv("provider.service", "PROVIDER_SERVICE")
	_ = v.BindEnv("provider.country", "PROVIDER_COUNTRY")
	_ = v.BindEnv("provider.timeout", "PROVIDER_TIMEOUT")

	_ = v.BindEnv("token.accessTTL", "ACCESS_TOKEN_TTL")
	_ = v.BindEnv("token.refreshTTL", "REFRESH_TOKEN_TTL")
	_ = v.BindEnv("reservation.ttl", "RESERVATION_TTL")

	_ = v.BindEnv("cookie.secure", "COOKIE_SECURE")

	_ = v.BindEnv("http.trustedProxies", "TRUSTED_PROXIES")

	_ = v.BindEnv("ratelimit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("ratelimit.window", "RATE_LIMIT_WINDOW")

	_ = v.BindEnv("metrics.enabled", "METRICS_ENABLED")
}

// Load reads configuration from the environment on top of defaults.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	cfg := Config{
		AppPort:  v.GetString("app.port"),
		LogLevel: v.GetString("log.level"),

		RedisAddr:     v.GetString("redis.addr"),
		RedisPassword: v.GetString("redis.password"),
		RedisDB:       v.GetInt("redis.db"),
		RedisPoolSize: v.GetInt("redis.poolSize"),
		RedisPrefix:   v.GetString("redis.prefix"),

		DatabaseDSN: v.GetString("database.dsn"),

		ProviderName:    strings.ToLower(v.GetString("provider.name")),
		ProviderBaseURL: v.GetString("provider.baseURL"),
		ProviderAPIKey:  v.GetString("provider.apiKey"),
		ProviderService: v.GetString("provider.service"),
		ProviderCountry: v.GetString("provider.country"),
		ProviderTimeout: v.GetDuration("provider.timeout"),

		AccessTokenTTL:  v.GetDuration("token.accessTTL"),
		RefreshTokenTTL: v.GetDuration("token.refreshTTL"),
		ReservationTTL:  v.GetDuration("reservation.ttl"),

		CookieSecure: v.GetBool("cookie.secure"),

		TrustedProxies: splitList(v.GetString("http.trustedProxies")),

		RateLimitRequests: v.GetInt("ratelimit.requests"),
		RateLimitWindow:   v.GetDuration("ratelimit.window"),

		MetricsEnabled: v.GetBool("metrics.enabled"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("APP_PORT must be set")
	}
	if c.RedisAddr == "" {
		return errors.New("REDIS_ADDR must be set")
	}
	if c.ProviderBaseURL == "" {
		return errors.New("PROVIDER_BASE_URL must be set")
	}
	if c.ProviderAPIKey == "" {
		return errors.New("API_KEY must be set")
	}
	if c.ProviderTimeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT must be positive")
	}
	if c.AccessTokenTTL < time.Second {
		return errors.New("ACCESS_TOKEN_TTL must be at least one second")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return errors.New("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}
	if c.ReservationTTL < time.Second {
		return errors.New("RESERVATION_TTL must be at least one second")
	}
	if c.RateLimitRequests < 0 {
		return errors.New("RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", p)
			}
		}
	}
	return nil
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
