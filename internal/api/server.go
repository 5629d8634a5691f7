// Package api serves the dashboard and the JSON API over the product service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IshaanNene/compscout/internal/ai"
	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/dashboard"
	"github.com/IshaanNene/compscout/internal/discovery"
	"github.com/IshaanNene/compscout/internal/observability"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 5 * time.Minute // discovery runs many upstream calls
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Analyzer produces an LLM analysis for a stored product.
type Analyzer interface {
	Analyze(ctx context.Context, productID string) (*ai.Analysis, error)
}

// Server is the HTTP front end: dashboard pages, the JSON API and metrics.
type Server struct {
	router   *gin.Engine
	server   *http.Server
	svc      *discovery.Service
	analyzer Analyzer
	renderer *dashboard.Renderer
	metrics  *observability.Metrics
	cfg      *config.Config
	logger   *slog.Logger
}

// NewServer builds the router. analyzer and metrics may be nil; the analysis
// endpoint then answers 503 and /metrics is not mounted.
func NewServer(cfg *config.Config, svc *discovery.Service, analyzer Analyzer, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	renderer, err := dashboard.NewRenderer(logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   gin.New(),
		svc:      svc,
		analyzer: analyzer,
		renderer: renderer,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger.With("component", "api_server"),
	}

	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	s.router.GET("/", s.handleDashboard)
	s.router.GET("/products/:id", s.handleProductPage)

	v1 := s.router.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.GET("", s.handleListProducts)
		products.POST("", s.handleScrape)
		products.DELETE("", s.handleClearAll)
		products.GET("/:id", s.handleGetProduct)
		products.DELETE("/:id", s.handleDeleteProduct)

		products.GET("/:id/competitors", s.handleListCompetitors)
		products.POST("/:id/competitors", s.handleDiscover)
		products.DELETE("/:id/competitors", s.handleClearCompetitors)
		products.GET("/:id/competitors/export", s.handleExport)

		products.POST("/:id/analysis", s.handleAnalyze)
	}

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(s.metrics.Handler()))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
