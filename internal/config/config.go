package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Pricing engine.
	EngineMode           string
	AuthPriceBookID      string
	FlatDecorationCode   string
	ThreeDDecorationCode string
	CurrencyCode         string

	// Infrastructure knobs.
	CatalogCacheTTL   time.Duration
	CartTTL           time.Duration
	IdempotencyTTL    time.Duration
	QueueRedisPrefix  string
	QueuePollInterval time.Duration
	QueueMaxAttempts  int
	QuoteRateWindow   time.Duration
	QuoteRateMax      int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		AdminJWTSecret:     k.String("ADMIN_JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		EngineMode:           valueOrDefault(strings.ToLower(k.String("PRICING_ENGINE_MODE")), "additive"),
		AuthPriceBookID:      k.String("PRICING_AUTH_PRICE_BOOK_ID"),
		FlatDecorationCode:   valueOrDefault(k.String("PRICING_FLAT_DECORATION_CODE"), "FLATEMBROIDERY"),
		ThreeDDecorationCode: valueOrDefault(k.String("PRICING_THREED_DECORATION_CODE"), "3DEMBROIDERY"),
		CurrencyCode:         valueOrDefault(k.String("PRICING_CURRENCY"), "USD"),

		CatalogCacheTTL:   parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CartTTL:           parseDuration(k.String("CART_TTL"), "168h"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		QueueRedisPrefix:  valueOrDefault(k.String("QUEUE_REDIS_PREFIX"), "decor"),
		QueuePollInterval: parseDuration(k.String("QUEUE_POLL_INTERVAL"), "2s"),
		QueueMaxAttempts:  intOrDefault(k.Int("QUEUE_MAX_ATTEMPTS"), 5),
		QuoteRateWindow:   parseDuration(k.String("QUOTE_RATE_WINDOW"), "1m"),
		QuoteRateMax:      intOrDefault(k.Int("QUOTE_RATE_MAX"), 120),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.EngineMode != "additive" && cfg.EngineMode != "lookup" {
		return nil, fmt.Errorf("PRICING_ENGINE_MODE must be additive or lookup, got %q", cfg.EngineMode)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}
