// Package compscout provides a public SDK for embedding competitor discovery
// as a library.
//
// Example usage:
//
//	client, err := compscout.New(ctx,
//	    compscout.WithCredentials(user, pass),
//	    compscout.WithStoragePath("./data/products.json"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if _, err := client.Scrape(ctx, "B0CX23V2ZK", "com", ""); err != nil {
//	    return err
//	}
//	result, err := client.Discover(ctx, compscout.DiscoverRequest{ParentID: "B0CX23V2ZK", Limit: 10})
package compscout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/compscout/internal/ai"
	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/dashboard"
	"github.com/IshaanNene/compscout/internal/discovery"
	"github.com/IshaanNene/compscout/internal/fetcher"
	"github.com/IshaanNene/compscout/internal/observability"
	"github.com/IshaanNene/compscout/internal/pipeline"
	"github.com/IshaanNene/compscout/internal/storage"
	"github.com/IshaanNene/compscout/internal/types"
)

type (
	// Product is a stored primary or competitor listing.
	Product = types.Product
	// DiscoverRequest is the input of one discovery run.
	DiscoverRequest = discovery.DiscoverRequest
	// DiscoveryResult summarizes a finished run.
	DiscoveryResult = discovery.DiscoveryResult
	// Analysis is the structured LLM analysis of a product.
	Analysis = ai.Analysis
	// Summary aggregates competitor prices and ratings.
	Summary = dashboard.Summary
	// Catalog is the remote marketplace interface.
	Catalog = fetcher.Catalog
)

// Option configures a Client.
type Option func(*settings)

type settings struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog fetcher.Catalog
	store   storage.Store
	metrics *observability.Metrics
}

// WithConfig replaces the default configuration. Later options still apply.
func WithConfig(cfg *config.Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithCredentials sets the scraping API username and password.
func WithCredentials(username, password string) Option {
	return func(s *settings) {
		s.cfg.API.Username = username
		s.cfg.API.Password = password
	}
}

// WithEndpoint overrides the scraping API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.cfg.API.Endpoint = endpoint }
}

// WithDomain sets the default marketplace domain.
func WithDomain(domain string) Option {
	return func(s *settings) { s.cfg.Discovery.DefaultDomain = domain }
}

// WithRetries sets the attempt budget and base delay of API calls.
func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(s *settings) {
		s.cfg.API.MaxRetries = maxRetries
		s.cfg.API.RetryDelay = delay
	}
}

// WithConcurrency bounds parallel search and detail calls.
func WithConcurrency(n int) Option {
	return func(s *settings) { s.cfg.Discovery.Concurrency = n }
}

// WithStoragePath stores records in a JSON file.
func WithStoragePath(path string) Option {
	return func(s *settings) {
		s.cfg.Storage.Type = "file"
		s.cfg.Storage.Path = path
	}
}

// WithMongo stores records in a MongoDB collection.
func WithMongo(uri, database string) Option {
	return func(s *settings) {
		s.cfg.Storage.Type = "mongo"
		s.cfg.Storage.MongoURI = uri
		s.cfg.Storage.Database = database
	}
}

// WithMemoryStore keeps records in memory only.
func WithMemoryStore() Option {
	return func(s *settings) { s.cfg.Storage.Type = "memory" }
}

// WithLLM configures the analysis provider and model.
func WithLLM(provider, model, apiKey string) Option {
	return func(s *settings) {
		s.cfg.AI.Enabled = true
		s.cfg.AI.Provider = provider
		s.cfg.AI.Model = model
		s.cfg.AI.APIKey = apiKey
	}
}

// WithoutAnalysis disables the LLM analyzer.
func WithoutAnalysis() Option {
	return func(s *settings) { s.cfg.AI.Enabled = false }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithMetrics records API, discovery and store metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithCatalog replaces the scraping API client.
func WithCatalog(c Catalog) Option {
	return func(s *settings) { s.catalog = c }
}

// WithStore replaces the configured storage backend.
func WithStore(store storage.Store) Option {
	return func(s *settings) { s.store = store }
}

// Client is the high-level API for scraping products and discovering
// their competitors.
type Client struct {
	cfg      *config.Config
	svc      *discovery.Service
	analyzer *ai.Analyzer
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New builds a Client. Missing API credentials do not fail construction;
// Scrape and Discover then return a ConfigurationError, while stored
// records stay readable.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	s := &settings{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = defaultLogger(s.cfg.Logging.Level)
	}
	if err := config.Validate(s.cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	catalog := s.catalog
	if catalog == nil {
		catalog = newAPICatalog(s)
	}

	store := s.store
	if store == nil {
		var err error
		store, err = storage.Open(ctx, &s.cfg.Storage, s.logger, s.metrics)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	c := &Client{
		cfg:     s.cfg,
		svc:     discovery.NewService(catalog, store, &s.cfg.Discovery, s.metrics, s.logger),
		metrics: s.metrics,
		logger:  s.logger,
	}

	if s.cfg.AI.Enabled {
		llm, err := ai.NewLLMClientFromConfig(&s.cfg.AI, s.logger)
		if err != nil {
			s.logger.Warn("analysis disabled", "reason", err)
		} else {
			c.analyzer = ai.NewAnalyzer(llm, store, &s.cfg.AI, s.logger)
		}
	}
	return c, nil
}

func newAPICatalog(s *settings) fetcher.Catalog {
	client, err := fetcher.NewClient(&s.cfg.API,
		fetcher.Credentials{Username: s.cfg.API.Username, Password: s.cfg.API.Password},
		s.logger,
		fetcher.WithMetrics(s.metrics),
		fetcher.WithPipeline(pipeline.Default(s.logger)),
	)
	if err != nil {
		s.logger.Debug("scraping API unavailable", "reason", err)
		return unavailableCatalog{err: err}
	}
	return client
}

// unavailableCatalog answers every call with the error that prevented the
// API client from being built.
type unavailableCatalog struct{ err error }

func (u unavailableCatalog) FetchDetails(context.Context, string, string, string) (*types.Product, error) {
	return nil, u.err
}

func (u unavailableCatalog) Search(context.Context, fetcher.SearchQuery) ([]types.CandidateHit, error) {
	return nil, u.err
}

// Scrape fetches a product and stores it as a primary record.
func (c *Client) Scrape(ctx context.Context, id, domain, geoLocation string) (*Product, error) {
	return c.svc.ScrapeProduct(ctx, id, domain, geoLocation)
}

// Discover runs one competitor discovery pass.
func (c *Client) Discover(ctx context.Context, req DiscoverRequest) (*DiscoveryResult, error) {
	return c.svc.DiscoverCompetitors(ctx, req)
}

// Product returns a stored record.
func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	return c.svc.Product(ctx, id)
}

// Products returns every stored primary product.
func (c *Client) Products(ctx context.Context) ([]*Product, error) {
	return c.svc.Products(ctx)
}

// Competitors returns the stored competitors of parentID.
func (c *Client) Competitors(ctx context.Context, parentID string) ([]*Product, error) {
	return c.svc.CachedCompetitors(ctx, parentID)
}

// Summarize aggregates price and rating figures over products.
func (c *Client) Summarize(products []*Product) Summary {
	return dashboard.Summarize(products)
}

// Analyze runs the LLM analysis of a stored product.
func (c *Client) Analyze(ctx context.Context, productID string) (*Analysis, error) {
	if c.analyzer == nil {
		return nil, &types.ConfigurationError{Key: "ai", Reason: "analysis is disabled or not configured"}
	}
	return c.analyzer.Analyze(ctx, productID)
}

// Export writes the competitors of parentID as csv or xlsx.
func (c *Client) Export(ctx context.Context, w io.Writer, parentID, format string) (int, error) {
	competitors, err := c.svc.CachedCompetitors(ctx, parentID)
	if err != nil {
		return 0, err
	}
	if err := storage.Export(w, format, competitors); err != nil {
		return 0, err
	}
	return len(competitors), nil
}

// ClearCompetitors removes the competitors of parentID.
func (c *Client) ClearCompetitors(ctx context.Context, parentID string) (int, error) {
	return c.svc.ClearCompetitors(ctx, parentID)
}

// Delete removes a product and its competitors.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.svc.DeleteProduct(ctx, id)
}

// ClearAll removes every stored record.
func (c *Client) ClearAll(ctx context.Context) error {
	return c.svc.ClearAll(ctx)
}

// Service exposes the product service for the HTTP server.
func (c *Client) Service() *discovery.Service { return c.svc }

// Analyzer returns the analyzer, or nil when analysis is disabled.
func (c *Client) Analyzer() *ai.Analyzer { return c.analyzer }

// Metrics returns the metrics set passed with WithMetrics.
func (c *Client) Metrics() *observability.Metrics { return c.metrics }

// Config returns the effective configuration.
func (c *Client) Config() *config.Config { return c.cfg }

// Close releases the store.
func (c *Client) Close() error {
	return c.svc.Store().Close()
}

func defaultLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
