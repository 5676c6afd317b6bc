package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Durable store
	StoreDriver string // "memory", "postgres" or "sqlite"
	TablePrefix string
	SQLitePath  string

	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Upstream providers
	FundamentalsBaseURL string
	FundamentalsAPIKey  string
	MacroBaseURL        string
	MacroAPIKey         string
	SentimentBaseURL    string
	MarketsBaseURL      string
	AssessmentBaseURL   string
	AssessmentAPIKey    string
	AssessmentModel     string

	ProviderTimeout time.Duration

	// Cache TTLs
	TTL TTLPolicy
}

// TTLPolicy is the single owner of per-category cache freshness windows.
// Every cached operation looks its TTL up here rather than carrying a literal.
type TTLPolicy struct {
	Profile    time.Duration
	Statements time.Duration
	Quote      time.Duration
	Macro      time.Duration
	Sentiment  time.Duration
	Markets    time.Duration
	Assessment time.Duration
	Snapshot   time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Store defaults
		StoreDriver: getEnvOrDefault("STORE_DRIVER", "memory"),
		TablePrefix: getEnvOrDefault("STORE_TABLE_PREFIX", "finsight_cache"),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "finsight.db"),

		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "finsight"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "finsight123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "finsight"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Provider defaults
		FundamentalsBaseURL: getEnvOrDefault("FUNDAMENTALS_API_URL", "https://financialmodelingprep.com/api/v3"),
		FundamentalsAPIKey:  os.Getenv("FUNDAMENTALS_API_KEY"),
		MacroBaseURL:        getEnvOrDefault("MACRO_API_URL", "https://api.stlouisfed.org/fred"),
		MacroAPIKey:         os.Getenv("MACRO_API_KEY"),
		SentimentBaseURL:    getEnvOrDefault("SENTIMENT_API_URL", "https://api.alternative.me/fng"),
		MarketsBaseURL:      getEnvOrDefault("MARKETS_API_URL", "https://gamma-api.polymarket.com"),
		AssessmentBaseURL:   getEnvOrDefault("ASSESSMENT_API_URL", "https://api.openai.com/v1"),
		AssessmentAPIKey:    os.Getenv("ASSESSMENT_API_KEY"),
		AssessmentModel:     getEnvOrDefault("ASSESSMENT_MODEL", "gpt-4o-mini"),

		ProviderTimeout: getDurationOrDefault("PROVIDER_TIMEOUT", 30*time.Second),

		// TTL defaults per data category (seconds)
		TTL: TTLPolicy{
			Profile:    getTTLSecondsOrDefault("TTL_PROFILE_SECONDS", 2592000),
			Statements: getTTLSecondsOrDefault("TTL_STATEMENTS_SECONDS", 2592000),
			Quote:      getTTLSecondsOrDefault("TTL_QUOTE_SECONDS", 900),
			Macro:      getTTLSecondsOrDefault("TTL_MACRO_SECONDS", 86400),
			Sentiment:  getTTLSecondsOrDefault("TTL_SENTIMENT_SECONDS", 43200),
			Markets:    getTTLSecondsOrDefault("TTL_MARKETS_SECONDS", 3600),
			Assessment: getTTLSecondsOrDefault("TTL_ASSESSMENT_SECONDS", 86400),
			Snapshot:   getTTLSecondsOrDefault("TTL_SNAPSHOT_SECONDS", 86400),
		},
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	switch c.StoreDriver {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("STORE_DRIVER must be 'memory', 'postgres' or 'sqlite', got %q", c.StoreDriver)
	}

	if c.TablePrefix == "" {
		return fmt.Errorf("STORE_TABLE_PREFIX cannot be empty")
	}

	if c.FundamentalsBaseURL == "" {
		return fmt.Errorf("FUNDAMENTALS_API_URL cannot be empty")
	}

	if c.MacroBaseURL == "" {
		return fmt.Errorf("MACRO_API_URL cannot be empty")
	}

	if c.MarketsBaseURL == "" {
		return fmt.Errorf("MARKETS_API_URL cannot be empty")
	}

	ttls := []struct {
		name  string
		value time.Duration
	}{
		{"TTL_PROFILE_SECONDS", c.TTL.Profile},
		{"TTL_STATEMENTS_SECONDS", c.TTL.Statements},
		{"TTL_QUOTE_SECONDS", c.TTL.Quote},
		{"TTL_MACRO_SECONDS", c.TTL.Macro},
		{"TTL_SENTIMENT_SECONDS", c.TTL.Sentiment},
		{"TTL_MARKETS_SECONDS", c.TTL.Markets},
		{"TTL_ASSESSMENT_SECONDS", c.TTL.Assessment},
		{"TTL_SNAPSHOT_SECONDS", c.TTL.Snapshot},
	}
	for _, ttl := range ttls {
		if ttl.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", ttl.name, ttl.value)
		}
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getTTLSecondsOrDefault reads a whole-seconds TTL from the environment.
func getTTLSecondsOrDefault(key string, defaultSeconds int64) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultSeconds) * time.Second
	}

	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Duration(defaultSeconds) * time.Second
	}

	return time.Duration(seconds) * time.Second
}
