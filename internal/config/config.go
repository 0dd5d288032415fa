// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the aggregation pipeline and
// the dispatch scheduler.
type Config struct {
	// Collection
	SourcesPath    string
	KeywordsPath   string
	IndicatorsPath string
	FetchWindow    time.Duration
	FetchTimeout   time.Duration
	MaxConcurrent  int
	MaxItems       int
	MaxPerSource   int
	ScrapeDelay    time.Duration

	// Review channel
	ReviewAPIBase  string
	ReviewAPIToken string
	AuthThreshold  int

	// Cache
	CacheDir string
	CacheTTL time.Duration

	// Synthesis
	GeminiAPIKey   string
	GeminiModel    string
	LensTimeout    time.Duration
	MaxDailyCalls  int
	MaxPerLensCall int

	// Delivery
	WebhookURL     string
	DeliveryFormat string

	// Scheduler
	StorePath      string
	PostgresURL    string
	TickSpec       string
	AlertThreshold int

	// Monitoring
	EnableHTTPMonitoring bool
	MonitoringPort       string
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		SourcesPath:    getEnv("SOURCES_PATH", "configs/sources.yaml"),
		KeywordsPath:   getEnv("KEYWORDS_PATH", "configs/keywords.yaml"),
		IndicatorsPath: getEnv("INDICATORS_PATH", "configs/review.yaml"),
		FetchWindow:    getEnvDuration("FETCH_WINDOW", 14*24*time.Hour),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		MaxConcurrent:  getEnvInt("MAX_CONCURRENT_FETCHES", 4),
		MaxItems:       getEnvInt("MAX_ITEMS", 50),
		MaxPerSource:   getEnvInt("MAX_PER_SOURCE", 20),
		ScrapeDelay:    getEnvDuration("SCRAPE_DELAY", 500*time.Millisecond),

		ReviewAPIBase:  os.Getenv("REVIEW_API_BASE"),
		ReviewAPIToken: os.Getenv("REVIEW_API_TOKEN"),
		AuthThreshold:  getEnvInt("AUTHENTICITY_THRESHOLD", 3),

		CacheDir: getEnv("CACHE_DIR", "data/cache"),
		CacheTTL: getEnvDuration("CACHE_TTL", 12*time.Hour),

		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		LensTimeout:    getEnvDuration("LENS_TIMEOUT", 60*time.Second),
		MaxDailyCalls:  getEnvInt("MAX_DAILY_AI_CALLS", 200),
		MaxPerLensCall: getEnvInt("MAX_PER_LENS_CALLS", 60),

		WebhookURL:     os.Getenv("DELIVERY_WEBHOOK_URL"),
		DeliveryFormat: getEnv("DELIVERY_FORMAT", "email"),

		StorePath:      getEnv("SUBSCRIPTIONS_PATH", "data/subscriptions.json"),
		PostgresURL:    os.Getenv("DATABASE_URL"),
		TickSpec:       getEnv("TICK_SPEC", "@every 1m"),
		AlertThreshold: getEnvInt("DISPATCH_ALERT_THRESHOLD", 3),

		EnableHTTPMonitoring: getEnvBool("ENABLE_HTTP_MONITORING", false),
		MonitoringPort:       getEnv("MONITORING_PORT", "8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing failures deep in the pipeline.
func (c *Config) Validate() error {
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %v", c.FetchTimeout)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.CacheTTL)
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("MAX_ITEMS must be positive, got %d", c.MaxItems)
	}
	if c.MaxPerSource <= 0 {
		return fmt.Errorf("MAX_PER_SOURCE must be positive, got %d", c.MaxPerSource)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_FETCHES must be positive, got %d", c.MaxConcurrent)
	}
	if c.AuthThreshold < 0 {
		return fmt.Errorf("AUTHENTICITY_THRESHOLD must not be negative, got %d", c.AuthThreshold)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
