package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Env      string
	LogLevel string
	Network  string

	// Graph store
	DBDriver string
	DBDSN    string

	// Instagram
	InstagramAPIURL   string
	InstagramClientID string
	InstagramSeedUser string
	InstagramMaxPages int
	CourtesyDelay     time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration

	// TAGME entity extraction, disabled when TagmeURL is empty
	TagmeURL           string
	TagmeKey           string
	TagmeRetryAttempts int
	TagmeRetryDelay    time.Duration
	TagmeCourtesyDelay time.Duration

	// Link expansion
	LinkFetchTimeout time.Duration
	RedisAddr        string // empty disables the page cache
	RedisPassword    string
	RedisDB          int
	LinkCacheTTL     time.Duration

	// Service
	GRPCPort         int
	MetricsAddr      string
	OTelExporterHost string

	// Crawl and scoring
	IdleWait           time.Duration // 0 stops the crawl once the graph is exhausted
	ScoreWorkers       int
	ScoreCompletedOnly bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	var p envParser
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Network:  getEnv("NETWORK", "IG"),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "expertfinder.db"),

		InstagramAPIURL:   getEnv("INSTAGRAM_API_URL", "https://api.instagram.com/v1"),
		InstagramClientID: getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramSeedUser: getEnv("INSTAGRAM_SEED_USER", "4355568"),
		InstagramMaxPages: p.getInt("INSTAGRAM_MAX_PAGES", 0),
		CourtesyDelay:     p.getDuration("COURTESY_DELAY", 700*time.Millisecond),
		RetryAttempts:     p.getInt("RETRY_ATTEMPTS", 10),
		RetryDelay:        p.getDuration("RETRY_DELAY", 700*time.Millisecond),

		TagmeURL:           getEnv("TAGME_URL", ""),
		TagmeKey:           getEnv("TAGME_KEY", ""),
		TagmeRetryAttempts: p.getInt("TAGME_RETRY_ATTEMPTS", 10),
		TagmeRetryDelay:    p.getDuration("TAGME_RETRY_DELAY", 500*time.Millisecond),
		TagmeCourtesyDelay: p.getDuration("TAGME_COURTESY_DELAY", 500*time.Millisecond),

		LinkFetchTimeout: p.getDuration("LINK_FETCH_TIMEOUT", 10*time.Second),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          p.getInt("REDIS_DB", 0),
		LinkCacheTTL:     p.getDuration("LINK_CACHE_TTL", 24*time.Hour),

		GRPCPort:         p.getInt("GRPC_PORT", 8181),
		MetricsAddr:      getEnv("METRICS_ADDR", ":9090"),
		OTelExporterHost: getEnv("OTEL_EXPORTER_HOST", ""),

		IdleWait:           p.getDuration("IDLE_WAIT", 0),
		ScoreWorkers:       p.getInt("SCORE_WORKERS", 4),
		ScoreCompletedOnly: p.getBool("SCORE_COMPLETED_ONLY", true),
	}

	if err := p.err(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or pgx, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Network == "" {
		return fmt.Errorf("NETWORK is required")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.TagmeRetryAttempts < 1 {
		return fmt.Errorf("TAGME_RETRY_ATTEMPTS must be at least 1")
	}
	if c.ScoreWorkers < 1 {
		return fmt.Errorf("SCORE_WORKERS must be at least 1")
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("GRPC_PORT out of range: %d", c.GRPCPort)
	}
	// the Instagram client id is only needed by the crawl command
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envParser parses typed variables and collects the malformed ones.
type envParser struct {
	errs []error
}

func (p *envParser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
}

func (p *envParser) err() error {
	return errors.Join(p.errs...)
}

func (p *envParser) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return result
}

func (p *envParser) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return result
}

func (p *envParser) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return result
}
