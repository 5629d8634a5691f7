// Package discovery finds, fetches and stores competitor listings for a
// primary product.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/fetcher"
	"github.com/IshaanNene/compscout/internal/observability"
	"github.com/IshaanNene/compscout/internal/storage"
	"github.com/IshaanNene/compscout/internal/types"
)

// DiscoverRequest is the input of one discovery run. Zero Pages and Limit
// take the configured defaults.
type DiscoverRequest struct {
	ParentID    string `json:"parent_id"`
	Domain      string `json:"domain,omitempty"`
	GeoLocation string `json:"geo_location,omitempty"`
	Pages       int    `json:"pages,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// DiscoveryResult summarizes a finished run.
type DiscoveryResult struct {
	RunID          string           `json:"run_id"`
	ParentID       string           `json:"parent_id"`
	Domain         string           `json:"domain"`
	GeoLocation    string           `json:"geo_location,omitempty"`
	Categories     []string         `json:"categories"`
	Candidates     []string         `json:"candidates"`
	Competitors    []*types.Product `json:"competitors"`
	SearchCalls    int              `json:"search_calls"`
	SearchFailures int              `json:"search_failures"`
	Attempted      int              `json:"attempted"`
	Failed         int              `json:"failed"`
	Skipped        int              `json:"skipped"`
	Duration       time.Duration    `json:"duration"`
	Report         *BatchReport     `json:"-"`
}

// Discoverer composes the aggregator, the batch fetcher and the store.
type Discoverer struct {
	store      storage.Store
	aggregator *Aggregator
	batch      *BatchFetcher
	cfg        config.DiscoveryConfig
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewDiscoverer creates a Discoverer. metrics may be nil.
func NewDiscoverer(catalog fetcher.Catalog, store storage.Store, cfg *config.DiscoveryConfig, metrics *observability.Metrics, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		store:      store,
		aggregator: NewAggregator(catalog, cfg.MaxCandidates, cfg.Concurrency, logger),
		batch:      NewBatchFetcher(catalog, cfg.Concurrency, logger),
		cfg:        *cfg,
		metrics:    metrics,
		logger:     logger.With("component", "discoverer"),
	}
}

// Discover runs one discovery pass for req.ParentID and returns the
// competitors it stored. A missing parent is a NotFoundError; a search
// that yields no candidates is an empty result, not an error.
func (d *Discoverer) Discover(ctx context.Context, req DiscoverRequest) (*DiscoveryResult, error) {
	start := time.Now()
	result, err := d.discover(ctx, req)
	duration := time.Since(start)

	outcome := observability.OutcomeSuccess
	switch {
	case err != nil:
		outcome = observability.OutcomeFailure
	case len(result.Competitors) == 0:
		outcome = observability.OutcomeEmpty
	}
	if result != nil {
		result.Duration = duration
		d.metrics.RecordDiscovery(outcome, duration, len(result.Candidates), len(result.Competitors), result.Failed, result.SearchFailures)
	} else {
		d.metrics.RecordDiscovery(outcome, duration, 0, 0, 0, 0)
	}
	return result, err
}

func (d *Discoverer) discover(ctx context.Context, req DiscoverRequest) (*DiscoveryResult, error) {
	if req.ParentID == "" {
		return nil, &types.ValidationError{Field: "parent_id", Reason: "missing"}
	}

	parent, err := d.store.Get(ctx, req.ParentID)
	if err != nil {
		return nil, fmt.Errorf("load parent %s: %w", req.ParentID, err)
	}
	if parent == nil {
		return nil, &types.NotFoundError{Kind: "product", ID: req.ParentID}
	}
	if parent.IsCompetitor() {
		return nil, &types.ValidationError{ID: parent.ID, Field: "type", Reason: "must be primary to discover competitors"}
	}

	result := &DiscoveryResult{
		RunID:       uuid.NewString(),
		ParentID:    parent.ID,
		Domain:      firstNonEmpty(parent.Domain, req.Domain, d.cfg.DefaultDomain, fetcher.DefaultDomain),
		GeoLocation: firstNonEmpty(parent.GeoLocation, req.GeoLocation),
		Categories:  deriveCategories(parent, d.maxCategories()),
		Candidates:  []string{},
		Competitors: []*types.Product{},
	}
	logger := d.logger.With("run_id", result.RunID, "parent_id", parent.ID)
	logger.Info("discovery started",
		"domain", result.Domain,
		"geo_location", result.GeoLocation,
		"categories", result.Categories,
	)

	agg, err := d.aggregator.Aggregate(ctx, AggregateRequest{
		ParentID:    parent.ID,
		Title:       parent.Title,
		Domain:      result.Domain,
		GeoLocation: result.GeoLocation,
		Categories:  result.Categories,
		Pages:       positiveOr(req.Pages, d.cfg.Pages),
	})
	if agg != nil {
		result.SearchCalls = agg.SearchCalls
		result.SearchFailures = agg.SearchFailures
	}
	if err != nil {
		return result, fmt.Errorf("aggregate candidates: %w", err)
	}

	candidates := agg.IDs()
	if limit := positiveOr(req.Limit, d.cfg.Limit); len(candidates) > limit {
		candidates = candidates[:limit]
	}
	result.Candidates = candidates
	if len(candidates) == 0 {
		logger.Info("no candidates found")
		return result, nil
	}

	report := d.batch.FetchAll(ctx, candidates, result.Domain, result.GeoLocation)
	result.Report = report
	result.Attempted = report.Attempted
	result.Failed = report.Failed

	stored := NewDeduplicator(len(candidates))
	for _, p := range report.Products() {
		if p.ID == parent.ID || !stored.MarkSeen(p.ID) {
			result.Skipped++
			continue
		}
		p.Type = types.TypeCompetitor
		p.ParentID = parent.ID
		p.Domain = result.Domain
		p.GeoLocation = result.GeoLocation

		rec, err := d.store.Upsert(ctx, p)
		if errors.Is(err, types.ErrValidation) {
			result.Skipped++
			logger.Warn("competitor rejected by store", "id", p.ID, "error", err)
			continue
		}
		if err != nil {
			return result, fmt.Errorf("store competitor %s: %w", p.ID, err)
		}
		result.Competitors = append(result.Competitors, rec)
	}

	logger.Info("discovery finished",
		"candidates", len(result.Candidates),
		"stored", len(result.Competitors),
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (d *Discoverer) maxCategories() int {
	if d.cfg.MaxCategories < 1 || d.cfg.MaxCategories > 3 {
		return 3
	}
	return d.cfg.MaxCategories
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	if fallback > 0 {
		return fallback
	}
	return 1
}
