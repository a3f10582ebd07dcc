package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Setup
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("SESSION_SECRET", "session")
	t.Setenv("AI_API_KEY", "key")

	// Execute
	cfg, err := LoadConfig()

	// Verify
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "imap.gmail.com:993", cfg.IMAPAddr)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, 30, cfg.MaxPageSize)
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, 24*time.Hour, cfg.ClassifyCacheTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	// Setup
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_PAGE_SIZE", "50")
	t.Setenv("BREAKER_TIMEOUT", "1m")
	t.Setenv("AI_PROVIDER", "heuristic")

	// Execute
	cfg, err := LoadConfig()

	// Verify
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 50, cfg.MaxPageSize)
	assert.Equal(t, time.Minute, cfg.BreakerTimeout)
	assert.Equal(t, "heuristic", cfg.AIProvider)
}

func TestLoadConfigRejectsMalformedValues(t *testing.T) {
	t.Setenv("MAX_PAGE_SIZE", "lots")

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GoogleClientID:          "id",
			GoogleClientSecret:      "secret",
			SessionSecret:           "session",
			AIProvider:              "openai",
			AIKey:                   "key",
			DefaultPageSize:         10,
			MaxPageSize:             30,
			ClassifyConcurrency:     5,
			BreakerFailureThreshold: 5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing client id", mutate: func(c *Config) { c.GoogleClientID = "" }, wantErr: "GOOGLE_CLIENT_ID"},
		{name: "missing session secret", mutate: func(c *Config) { c.SessionSecret = "" }, wantErr: "SESSION_SECRET"},
		{name: "missing ai key", mutate: func(c *Config) { c.AIKey = "" }, wantErr: "AI_API_KEY"},
		{name: "heuristic needs no key", mutate: func(c *Config) { c.AIKey = ""; c.AIProvider = "heuristic" }},
		{name: "default above max", mutate: func(c *Config) { c.DefaultPageSize = 40 }, wantErr: "page sizes"},
		{name: "zero concurrency", mutate: func(c *Config) { c.ClassifyConcurrency = 0 }, wantErr: "CLASSIFY_CONCURRENCY"},
		{name: "zero breaker threshold", mutate: func(c *Config) { c.BreakerFailureThreshold = 0 }, wantErr: "BREAKER_FAILURE_THRESHOLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
