package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from .env files, environment and config file.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("COMPSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("compscout")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".compscout"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyConventionalEnv(cfg)
	return cfg, nil
}

// loadEnvFiles loads .env.local then .env; existing variables always win.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// applyConventionalEnv fills credentials from the provider's usual variable
// names when the prefixed ones are not set.
func applyConventionalEnv(cfg *Config) {
	if cfg.API.Username == "" {
		cfg.API.Username = os.Getenv("OXYLABS_USERNAME")
	}
	if cfg.API.Password == "" {
		cfg.API.Password = os.Getenv("OXYLABS_PASSWORD")
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if m := os.Getenv("OPENAI_MODEL_PRIMARY"); m != "" && os.Getenv("COMPSCOUT_AI_MODEL") == "" {
		cfg.AI.Model = m
	}
	if m := os.Getenv("OPENAI_MODEL_FALLBACK"); m != "" && os.Getenv("COMPSCOUT_AI_FALLBACK_MODEL") == "" {
		cfg.AI.FallbackModel = m
	}
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("api.endpoint", cfg.API.Endpoint)
	v.SetDefault("api.username", cfg.API.Username)
	v.SetDefault("api.password", cfg.API.Password)
	v.SetDefault("api.request_timeout", cfg.API.RequestTimeout)
	v.SetDefault("api.max_retries", cfg.API.MaxRetries)
	v.SetDefault("api.retry_delay", cfg.API.RetryDelay)
	v.SetDefault("api.rate_limit", cfg.API.RateLimit)
	v.SetDefault("api.rate_burst", cfg.API.RateBurst)
	v.SetDefault("api.max_body_size", cfg.API.MaxBodySize)
	v.SetDefault("api.user_agent", cfg.API.UserAgent)

	v.SetDefault("discovery.pages", cfg.Discovery.Pages)
	v.SetDefault("discovery.limit", cfg.Discovery.Limit)
	v.SetDefault("discovery.max_candidates", cfg.Discovery.MaxCandidates)
	v.SetDefault("discovery.max_categories", cfg.Discovery.MaxCategories)
	v.SetDefault("discovery.concurrency", cfg.Discovery.Concurrency)
	v.SetDefault("discovery.default_domain", cfg.Discovery.DefaultDomain)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.collection", cfg.Storage.Collection)

	v.SetDefault("ai.enabled", cfg.AI.Enabled)
	v.SetDefault("ai.provider", cfg.AI.Provider)
	v.SetDefault("ai.model", cfg.AI.Model)
	v.SetDefault("ai.fallback_model", cfg.AI.FallbackModel)
	v.SetDefault("ai.endpoint", cfg.AI.Endpoint)
	v.SetDefault("ai.api_key", cfg.AI.APIKey)
	v.SetDefault("ai.max_tokens", cfg.AI.MaxTokens)
	v.SetDefault("ai.temperature", cfg.AI.Temperature)
	v.SetDefault("ai.timeout", cfg.AI.Timeout)
	v.SetDefault("ai.max_competitors", cfg.AI.MaxCompetitors)

	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.environment", cfg.Server.Environment)
	v.SetDefault("server.per_page", cfg.Server.PerPage)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
