package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for compscout.
type Config struct {
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	AI        AIConfig        `mapstructure:"ai"        yaml:"ai"`
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// APIConfig controls the scraping API client.
type APIConfig struct {
	Endpoint       string        `mapstructure:"endpoint"        yaml:"endpoint"`
	Username       string        `mapstructure:"username"        yaml:"username"`
	Password       string        `mapstructure:"password"        yaml:"password"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"     yaml:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"     yaml:"retry_delay"`
	RateLimit      float64       `mapstructure:"rate_limit"      yaml:"rate_limit"` // requests per second
	RateBurst      int           `mapstructure:"rate_burst"      yaml:"rate_burst"`
	MaxBodySize    int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
}

// DiscoveryConfig controls competitor discovery.
type DiscoveryConfig struct {
	Pages         int    `mapstructure:"pages"          yaml:"pages"`
	Limit         int    `mapstructure:"limit"          yaml:"limit"`
	MaxCandidates int    `mapstructure:"max_candidates" yaml:"max_candidates"`
	MaxCategories int    `mapstructure:"max_categories" yaml:"max_categories"`
	Concurrency   int    `mapstructure:"concurrency"    yaml:"concurrency"`
	DefaultDomain string `mapstructure:"default_domain" yaml:"default_domain"`
}

// StorageConfig controls the product store.
type StorageConfig struct {
	Type       string `mapstructure:"type"       yaml:"type"` // file, mongo, memory
	Path       string `mapstructure:"path"       yaml:"path"`
	MongoURI   string `mapstructure:"mongo_uri"  yaml:"mongo_uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// AIConfig controls LLM analysis.
type AIConfig struct {
	Enabled        bool          `mapstructure:"enabled"         yaml:"enabled"`
	Provider       string        `mapstructure:"provider"        yaml:"provider"`
	Model          string        `mapstructure:"model"           yaml:"model"`
	FallbackModel  string        `mapstructure:"fallback_model"  yaml:"fallback_model"`
	Endpoint       string        `mapstructure:"endpoint"        yaml:"endpoint"`
	APIKey         string        `mapstructure:"api_key"         yaml:"api_key"`
	MaxTokens      int           `mapstructure:"max_tokens"      yaml:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"     yaml:"temperature"`
	Timeout        time.Duration `mapstructure:"timeout"         yaml:"timeout"`
	MaxCompetitors int           `mapstructure:"max_competitors" yaml:"max_competitors"`
}

// ServerConfig controls the dashboard HTTP server.
type ServerConfig struct {
	Port        int    `mapstructure:"port"        yaml:"port"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	PerPage     int    `mapstructure:"per_page"    yaml:"per_page"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Endpoint:       "https://realtime.oxylabs.io/v1/queries",
			RequestTimeout: 30 * time.Second,
			MaxRetries:     3,
			RetryDelay:     1 * time.Second,
			RateLimit:      10,
			RateBurst:      5,
			MaxBodySize:    20 * 1024 * 1024, // 20MB
			UserAgent:      "compscout/" + Version,
		},
		Discovery: DiscoveryConfig{
			Pages:         2,
			Limit:         20,
			MaxCandidates: 20,
			MaxCategories: 3,
			Concurrency:   4,
			DefaultDomain: "com",
		},
		Storage: StorageConfig{
			Type:       "file",
			Path:       "./data/products.json",
			Database:   "compscout",
			Collection: "products",
		},
		AI: AIConfig{
			Enabled:        true,
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			FallbackModel:  "gpt-3.5-turbo",
			MaxTokens:      1500,
			Temperature:    0,
			Timeout:        120 * time.Second,
			MaxCompetitors: 10,
		},
		Server: ServerConfig{
			Port:        8501,
			Environment: "development",
			PerPage:     10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
