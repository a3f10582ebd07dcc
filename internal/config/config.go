package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port               string `env:"PORT" envDefault:"8080"`
	BaseURL            string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	SessionSecret      string `env:"SESSION_SECRET"`
	Env                string `env:"ENV" envDefault:"development"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage: postgres when DatabaseURL is set, else sqlite when SQLitePath
	// is set, else in-memory.
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`

	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	ClassifyCacheTTL time.Duration `env:"CLASSIFY_CACHE_TTL" envDefault:"24h"`

	AIProvider string        `env:"AI_PROVIDER" envDefault:"openai"`
	AIKey      string        `env:"AI_API_KEY"`
	AIModel    string        `env:"AI_MODEL"`
	AITimeout  time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`

	// MCPSecret gates POST /api/mcp/call when non-empty.
	MCPSecret string `env:"MCP_SECRET"`

	IMAPAddr        string        `env:"IMAP_ADDR" envDefault:"imap.gmail.com:993"`
	IMAPDialTimeout time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`

	DefaultPageSize     int `env:"DEFAULT_PAGE_SIZE" envDefault:"10"`
	MaxPageSize         int `env:"MAX_PAGE_SIZE" envDefault:"30"`
	ClassifyConcurrency int `env:"CLASSIFY_CONCURRENCY" envDefault:"5"`

	BreakerFailureThreshold int           `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	BreakerTimeout          time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.GoogleClientID == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}
	if c.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.AIProvider != "heuristic" && c.AIKey == "" {
		return fmt.Errorf("AI_API_KEY is required for provider %q", c.AIProvider)
	}
	if c.DefaultPageSize < 1 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("page sizes must satisfy 1 <= DEFAULT_PAGE_SIZE <= MAX_PAGE_SIZE")
	}
	if c.ClassifyConcurrency < 1 {
		return fmt.Errorf("CLASSIFY_CONCURRENCY must be positive")
	}
	if c.BreakerFailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be positive")
	}
	return nil
}
