// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Storage
	DatabaseURL    string // PostgreSQL connection string (optional, uses in-memory if not set)
	RedisURL       string // Redis URL for redirect intents (optional, uses in-memory if not set)
	TenantSeedFile string // YAML file of white-label tenants loaded at startup
	AutoMigrate    bool   // apply embedded migrations on startup

	// Tenant resolution
	ApexDomain     string   // e.g. "careerhub.io"; subdomains of it resolve to resellers
	ReservedLabels []string // subdomain labels that never name a tenant

	// Remote config endpoints (brand, pricing, partner plans)
	ConfigAPIURL    string
	FetchTimeout    time.Duration
	BrandCacheTTL   time.Duration
	PricingCacheTTL time.Duration

	// Display
	Currency string // ISO 4217 code used by price formatting
	Locale   string // BCP 47 tag used by price formatting

	// Security
	SessionSecret     string
	AdminSecret       string
	RateLimitRPM      int
	CORSOrigins       []string
	RedirectIntentTTL time.Duration

	// Tracing
	OTLPEndpoint string
}

const (
	DefaultPort              = "8080"
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultApexDomain        = "localhost"
	DefaultReservedLabels    = "www,app"
	DefaultFetchTimeout      = 3 * time.Second
	DefaultBrandCacheTTL     = 5 * time.Minute
	DefaultPricingCacheTTL   = 5 * time.Minute
	DefaultCurrency          = "GBP"
	DefaultLocale            = "en-GB"
	DefaultRateLimitRPM      = 600
	DefaultRedirectIntentTTL = 30 * time.Minute

	// devSessionSecret is only accepted outside production.
	devSessionSecret = "careerhub-development-session-secret"
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("PORT", DefaultPort)
	cfg := &Config{
		Port:              port,
		Env:               getEnv("ENV", DefaultEnv),
		LogLevel:          getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:         getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		TenantSeedFile:    os.Getenv("TENANT_SEED_FILE"),
		AutoMigrate:       getEnvBool("AUTO_MIGRATE", false),
		ApexDomain:        strings.ToLower(getEnv("APEX_DOMAIN", DefaultApexDomain)),
		ReservedLabels:    getEnvList("RESERVED_LABELS", DefaultReservedLabels),
		ConfigAPIURL:      strings.TrimRight(getEnv("CONFIG_API_URL", "http://127.0.0.1:"+port), "/"),
		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", DefaultFetchTimeout),
		BrandCacheTTL:     getEnvDuration("BRAND_CACHE_TTL", DefaultBrandCacheTTL),
		PricingCacheTTL:   getEnvDuration("PRICING_CACHE_TTL", DefaultPricingCacheTTL),
		Currency:          strings.ToUpper(getEnv("CURRENCY", DefaultCurrency)),
		Locale:            getEnv("LOCALE", DefaultLocale),
		SessionSecret:     getEnv("SESSION_SECRET", devSessionSecret),
		AdminSecret:       os.Getenv("ADMIN_SECRET"),
		RateLimitRPM:      int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		CORSOrigins:       getEnvList("CORS_ORIGINS", ""),
		RedirectIntentTTL: getEnvDuration("REDIRECT_INTENT_TTL", DefaultRedirectIntentTTL),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.ApexDomain == "" {
		return fmt.Errorf("APEX_DOMAIN is required")
	}
	if c.ConfigAPIURL == "" {
		return fmt.Errorf("CONFIG_API_URL is required")
	}
	if !strings.HasPrefix(c.ConfigAPIURL, "http://") && !strings.HasPrefix(c.ConfigAPIURL, "https://") {
		return fmt.Errorf("CONFIG_API_URL must be an http(s) URL")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a 3-letter ISO 4217 code")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.BrandCacheTTL <= 0 || c.PricingCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if c.IsProduction() {
		if c.SessionSecret == devSessionSecret {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
		}
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
