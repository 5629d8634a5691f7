package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/observability"
	"github.com/IshaanNene/compscout/internal/pipeline"
	"github.com/IshaanNene/compscout/internal/types"
)

// API source names.
const (
	SourceProduct = "amazon_product"
	SourceSearch  = "amazon_search"
)

// DefaultDomain is used when a caller supplies no storefront.
const DefaultDomain = "com"

// Client implements Catalog against the realtime scraping API.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	creds       Credentials
	userAgent   string
	maxAttempts int
	retryDelay  time.Duration
	maxBodySize int64
	limiter     *rate.Limiter
	pipeline    *pipeline.Pipeline
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// Option configures optional Client collaborators.
type Option func(*Client)

// WithMetrics records every API call on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithPipeline replaces the default normalization pipeline.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(c *Client) { c.pipeline = p }
}

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an API client. Missing credentials are a configuration error.
func NewClient(cfg *config.APIConfig, creds Credentials, logger *slog.Logger, opts ...Option) (*Client, error) {
	if creds.Empty() {
		key := "api.password"
		if creds.Username == "" {
			key = "api.username"
		}
		return nil, &types.ConfigurationError{Key: key, Reason: "is required"}
	}
	if err := config.ValidateEndpoint(cfg.Endpoint); err != nil {
		return nil, &types.ConfigurationError{Key: "api.endpoint", Reason: err.Error()}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	c := &Client{
		httpClient:  newHTTPClient(cfg.RequestTimeout),
		endpoint:    cfg.Endpoint,
		creds:       creds,
		userAgent:   cfg.UserAgent,
		maxAttempts: attempts,
		retryDelay:  cfg.RetryDelay,
		maxBodySize: cfg.MaxBodySize,
		limiter:     rate.NewLimiter(limit, burst),
		logger:      logger.With("component", "api_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pipeline == nil {
		c.pipeline = pipeline.Default(logger)
	}
	return c, nil
}

// apiRequest is the JSON body accepted by the realtime endpoint.
type apiRequest struct {
	Source      string            `json:"source"`
	Query       string            `json:"query"`
	Domain      string            `json:"domain"`
	Parse       bool              `json:"parse"`
	GeoLocation string            `json:"geo_location,omitempty"`
	Page        int               `json:"page,omitempty"`
	SortBy      string            `json:"sort_by,omitempty"`
	Refinements map[string]string `json:"refinements,omitempty"`
}

// FetchDetails returns the normalized product for id.
func (c *Client) FetchDetails(ctx context.Context, id, domain, geoLocation string) (*types.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &types.ValidationError{Field: "id", Reason: "missing"}
	}
	if domain == "" {
		domain = DefaultDomain
	}

	req := apiRequest{
		Source:      SourceProduct,
		Query:       id,
		Domain:      domain,
		Parse:       true,
		GeoLocation: geoFor(domain, geoLocation),
	}

	payload, err := c.post(ctx, "details", id, req)
	if err != nil {
		return nil, err
	}

	product := normalizeProduct(extractContent(payload))
	if product.ID == "" {
		product.ID = id
	}
	if product.URL == "" {
		product.URL = productURL(domain, product.ID)
	}
	product.Domain = domain
	product.GeoLocation = geoLocation

	result, err := c.pipeline.Process(product)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", id, err)
	}
	if result == nil {
		return nil, &types.ValidationError{ID: id, Field: "title", Reason: "missing from API response", Err: types.ErrDropped}
	}

	c.logger.Debug("details fetched", "id", result.ID, "title", result.Title, "domain", domain)
	return result, nil
}

// Search returns the hits of one search results page.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]types.CandidateHit, error) {
	query := CleanTitle(q.Title)
	if query == "" {
		return nil, &types.ValidationError{Field: "query", Reason: "missing"}
	}
	domain := q.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	req := apiRequest{
		Source:      SourceSearch,
		Query:       query,
		Domain:      domain,
		Parse:       true,
		GeoLocation: geoFor(domain, q.GeoLocation),
		Page:        page,
		SortBy:      q.SortBy,
	}
	if q.Category != "" {
		req.Refinements = map[string]string{"category": q.Category}
	}

	payload, err := c.post(ctx, "search", query, req)
	if err != nil {
		return nil, err
	}

	var hits []types.CandidateHit
	for _, item := range extractSearchItems(extractContent(payload)) {
		if hit, ok := normalizeHit(item); ok {
			hits = append(hits, hit)
		}
	}

	c.logger.Debug("search page fetched",
		"query", query,
		"sort_by", q.SortBy,
		"page", page,
		"category", q.Category,
		"hits", len(hits),
	)
	return hits, nil
}

// post sends req with retries and returns the decoded JSON envelope.
func (c *Client) post(ctx context.Context, op, query string, req apiRequest) (map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	start := time.Now()
	var lastErr *types.TransportError
	attempt := 0

	for attempt = 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = &types.TransportError{Op: op, Query: query, Err: err}
			break
		}

		payload, tErr := c.do(ctx, body)
		if tErr == nil {
			c.metrics.RecordAPICall(op, attempt, nil, time.Since(start))
			return payload, nil
		}
		lastErr = tErr

		if !tErr.Retryable || attempt == c.maxAttempts {
			break
		}

		delay := time.Duration(attempt) * c.retryDelay
		if tErr.RetryAfter > delay {
			delay = tErr.RetryAfter
		}
		c.logger.Warn("api call failed, retrying",
			"op", op,
			"query", query,
			"attempt", attempt,
			"status", tErr.StatusCode,
			"delay", delay,
			"error", tErr.Err,
		)
		if err := sleepCtx(ctx, delay); err != nil {
			lastErr = &types.TransportError{Op: op, Query: query, Err: err}
			break
		}
	}

	if attempt > c.maxAttempts {
		attempt = c.maxAttempts
	}
	lastErr.Op = op
	lastErr.Query = query
	lastErr.Attempts = attempt
	c.metrics.RecordAPICall(op, attempt, lastErr, time.Since(start))
	return nil, lastErr
}

// do executes a single HTTP attempt.
func (c *Client) do(ctx context.Context, body []byte) (map[string]any, *types.TransportError) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &types.TransportError{Err: err}
	}
	httpReq.SetBasicAuth(c.creds.Username, c.creds.Password)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &types.TransportError{Err: err, Retryable: isRetryableError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var snippet []byte
		if reader, derr := decompressReader(resp, resp.Body); derr == nil {
			snippet, _ = io.ReadAll(io.LimitReader(reader, 1024))
		}
		tErr := &types.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
			Retryable:  isRetryableStatus(resp.StatusCode),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			tErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return nil, tErr
	}

	var reader io.Reader = resp.Body
	if c.maxBodySize > 0 {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
		if err != nil {
			return nil, &types.TransportError{
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("read response: %w", err),
				Retryable:  isRetryableError(err),
			}
		}
		if int64(len(raw)) > c.maxBodySize {
			return nil, &types.TransportError{
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBodySize),
			}
		}
		reader = bytes.NewReader(raw)
	}
	reader, err = decompressReader(resp, reader)
	if err != nil {
		return nil, &types.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decompress: %w", err)}
	}

	var payload map[string]any
	if err := json.NewDecoder(reader).Decode(&payload); err != nil {
		return nil, &types.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
			Retryable:  isRetryableError(err),
		}
	}
	return payload, nil
}
