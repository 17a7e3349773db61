package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func validConfig() Config {
	return Config{
		Port:            "8080",
		Env:             "development",
		ApexDomain:      "careerhub.io",
		ConfigAPIURL:    "http://127.0.0.1:8080",
		Currency:        "GBP",
		FetchTimeout:    time.Second,
		BrandCacheTTL:   time.Minute,
		PricingCacheTTL: time.Minute,
		SessionSecret:   devSessionSecret,
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://127.0.0.1:9090", cfg.ConfigAPIURL)
	assert.Equal(t, DefaultApexDomain, cfg.ApexDomain)
	assert.Equal(t, []string{"www", "app"}, cfg.ReservedLabels)
	assert.Equal(t, DefaultBrandCacheTTL, cfg.BrandCacheTTL)
	assert.Equal(t, "GBP", cfg.Currency)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "ENV", "development")
	setEnv(t, "APEX_DOMAIN", "CareerHub.io")
	setEnv(t, "RESERVED_LABELS", "www, app ,admin")
	setEnv(t, "CONFIG_API_URL", "https://config.careerhub.io/")
	setEnv(t, "BRAND_CACHE_TTL", "90s")
	setEnv(t, "CURRENCY", "usd")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "careerhub.io", cfg.ApexDomain)
	assert.Equal(t, []string{"www", "app", "admin"}, cfg.ReservedLabels)
	assert.Equal(t, "https://config.careerhub.io", cfg.ConfigAPIURL)
	assert.Equal(t, 90*time.Second, cfg.BrandCacheTTL)
	assert.Equal(t, "USD", cfg.Currency)
}

func TestLoad_ProductionRequiresSessionSecret(t *testing.T) {
	setEnv(t, "ENV", "production")
	setEnv(t, "SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing apex", mutate: func(c *Config) { c.ApexDomain = "" }, wantErr: "APEX_DOMAIN is required"},
		{name: "bad config url", mutate: func(c *Config) { c.ConfigAPIURL = "ftp://x" }, wantErr: "http(s) URL"},
		{name: "bad currency", mutate: func(c *Config) { c.Currency = "POUND" }, wantErr: "ISO 4217"},
		{name: "zero timeout", mutate: func(c *Config) { c.FetchTimeout = 0 }, wantErr: "FETCH_TIMEOUT"},
		{name: "zero ttl", mutate: func(c *Config) { c.BrandCacheTTL = 0 }, wantErr: "TTLs"},
		{
			name: "short production secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.SessionSecret = "short"
			},
			wantErr: "at least 32",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvDuration(t *testing.T) {
	setEnv(t, "TEST_DURATION", "250ms")
	setEnv(t, "TEST_BAD_DURATION", "soon")

	assert.Equal(t, 250*time.Millisecond, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_BAD_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("NONEXISTENT_VAR", time.Second))
}

func TestGetEnvBool(t *testing.T) {
	setEnv(t, "TEST_BOOL", "true")
	setEnv(t, "TEST_BAD_BOOL", "maybe")

	assert.True(t, getEnvBool("TEST_BOOL", false))
	assert.False(t, getEnvBool("TEST_BAD_BOOL", false))
	assert.True(t, getEnvBool("NONEXISTENT_VAR", true))
}

func TestGetEnvInt64(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("NONEXISTENT_VAR", 99))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99))
}
