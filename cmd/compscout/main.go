package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/observability"
	"github.com/IshaanNene/compscout/internal/types"
	"github.com/IshaanNene/compscout/pkg/compscout"
)

var (
	cfgFile     string
	verbose     bool
	jsonLogs    bool
	storagePath string
	domain      string
	geoLocation string
)

func main() {
	rootCmd := newRootCmd()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "compscout",
		Short: "compscout finds and tracks competitors of marketplace products",
		Long: `compscout scrapes a product through a realtime scraping API, searches its
categories for similar listings and stores them as competitors.

Features:
  • Parallel category search with deterministic de-duplication
  • Batch detail fetching with per-item failure isolation
  • JSON file or MongoDB storage with idempotent upserts
  • CSV and XLSX export
  • LLM competitive analysis with model fallback
  • Web dashboard, JSON API and Prometheus metrics`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log in JSON format")
	rootCmd.PersistentFlags().StringVar(&storagePath, "store", "", "JSON store path (overrides storage.path)")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(competitorsCmd())
	rootCmd.AddCommand(productsCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// app bundles what a command needs after config and logging are set up.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	client  *compscout.Client
}

// loadConfig reads config, applies global flag overrides and validates it.
// needAPI additionally requires scraping API credentials.
func loadConfig(needAPI bool) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if storagePath != "" {
		cfg.Storage.Type = "file"
		cfg.Storage.Path = storagePath
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if jsonLogs {
		cfg.Logging.Format = "json"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if needAPI {
		if err := config.ValidateCredentials(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newApp(ctx context.Context, needAPI bool) (*app, error) {
	cfg, err := loadConfig(needAPI)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.Logging)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
	}

	client, err := compscout.New(ctx,
		compscout.WithConfig(cfg),
		compscout.WithLogger(logger),
		compscout.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, metrics: metrics, client: client}, nil
}

func (a *app) Close() {
	if err := a.client.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

// setupLogger creates a structured logger.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// exitCode maps error kinds to process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, types.ErrConfiguration):
		return 2
	case errors.Is(err, types.ErrNotFound):
		return 3
	case errors.Is(err, types.ErrTransport):
		return 4
	default:
		return 1
	}
}
