package config

import (
	"fmt"
	"net/url"

	"github.com/IshaanNene/compscout/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateEndpoint(cfg.API.Endpoint); err != nil {
		return &types.ConfigurationError{Key: "api.endpoint", Reason: err.Error()}
	}
	if cfg.API.RequestTimeout <= 0 {
		return invalid("api.request_timeout", "must be > 0")
	}
	if cfg.API.MaxRetries < 1 {
		return invalid("api.max_retries", fmt.Sprintf("must be >= 1, got %d", cfg.API.MaxRetries))
	}
	if cfg.API.RetryDelay < 0 {
		return invalid("api.retry_delay", "must be >= 0")
	}
	if cfg.API.RateLimit < 0 {
		return invalid("api.rate_limit", "must be >= 0")
	}

	if cfg.Discovery.Pages < 1 {
		return invalid("discovery.pages", fmt.Sprintf("must be >= 1, got %d", cfg.Discovery.Pages))
	}
	if cfg.Discovery.Limit < 1 {
		return invalid("discovery.limit", fmt.Sprintf("must be >= 1, got %d", cfg.Discovery.Limit))
	}
	if cfg.Discovery.MaxCandidates < 1 {
		return invalid("discovery.max_candidates", "must be >= 1")
	}
	if cfg.Discovery.MaxCategories < 1 || cfg.Discovery.MaxCategories > 3 {
		return invalid("discovery.max_categories", fmt.Sprintf("must be 1-3, got %d", cfg.Discovery.MaxCategories))
	}
	if cfg.Discovery.Concurrency < 1 || cfg.Discovery.Concurrency > 32 {
		return invalid("discovery.concurrency", fmt.Sprintf("must be 1-32, got %d", cfg.Discovery.Concurrency))
	}

	validStorageTypes := map[string]bool{
		"file": true, "mongo": true, "memory": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return invalid("storage.type", fmt.Sprintf("%q is not supported (valid: file, mongo, memory)", cfg.Storage.Type))
	}
	if cfg.Storage.Type == "file" && cfg.Storage.Path == "" {
		return invalid("storage.path", "is required for file storage")
	}
	if cfg.Storage.Type == "mongo" && cfg.Storage.MongoURI == "" {
		return invalid("storage.mongo_uri", "is required for mongo storage")
	}

	validProviders := map[string]bool{
		"openai": true, "ollama": true, "custom": true,
	}
	if cfg.AI.Enabled && !validProviders[cfg.AI.Provider] {
		return invalid("ai.provider", fmt.Sprintf("must be openai/ollama/custom, got %q", cfg.AI.Provider))
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return invalid("server.port", fmt.Sprintf("must be 1-65535, got %d", cfg.Server.Port))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return invalid("logging.level", fmt.Sprintf("must be debug/info/warn/error, got %q", cfg.Logging.Level))
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return invalid("logging.format", fmt.Sprintf("must be 'text' or 'json', got %q", cfg.Logging.Format))
	}

	return nil
}

// ValidateCredentials checks that scraping API credentials were resolved.
func ValidateCredentials(cfg *Config) error {
	if cfg.API.Username == "" {
		return &types.ConfigurationError{Key: "api.username", Reason: "is required (set COMPSCOUT_API_USERNAME or OXYLABS_USERNAME)"}
	}
	if cfg.API.Password == "" {
		return &types.ConfigurationError{Key: "api.password", Reason: "is required (set COMPSCOUT_API_PASSWORD or OXYLABS_PASSWORD)"}
	}
	return nil
}

// ValidateEndpoint checks if a URL string is usable as an API endpoint.
func ValidateEndpoint(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

func invalid(key, reason string) error {
	return &types.ConfigurationError{Key: key, Reason: reason}
}
