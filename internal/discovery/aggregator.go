package discovery

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/compscout/internal/fetcher"
	"github.com/IshaanNene/compscout/internal/types"
)

// AggregateRequest describes one candidate search fan-out.
type AggregateRequest struct {
	ParentID    string
	Title       string
	Domain      string
	GeoLocation string
	Categories  []string // empty runs a single unfiltered pass
	Pages       int
}

// AggregateResult holds the deduplicated candidates and call statistics.
type AggregateResult struct {
	Candidates     []types.CandidateHit
	SearchCalls    int
	SearchFailures int
	TotalHits      int
}

// IDs returns the candidate identifiers in first-seen order.
func (r *AggregateResult) IDs() []string {
	ids := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		ids[i] = c.ID
	}
	return ids
}

// Aggregator runs searches across sort strategies, category filters and
// pages and merges the hits into one bounded candidate list.
type Aggregator struct {
	catalog       fetcher.Catalog
	maxCandidates int
	concurrency   int
	logger        *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(catalog fetcher.Catalog, maxCandidates, concurrency int, logger *slog.Logger) *Aggregator {
	if maxCandidates < 1 {
		maxCandidates = 20
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{
		catalog:       catalog,
		maxCandidates: maxCandidates,
		concurrency:   concurrency,
		logger:        logger.With("component", "aggregator"),
	}
}

// searchCall is one slot of the fan-out; slots keep the merge order fixed.
type searchCall struct {
	query fetcher.SearchQuery
	hits  []types.CandidateHit
	err   error
}

// Aggregate runs every search, then deduplicates in strategy, category,
// page order. Failed searches are skipped; if all fail the last error is
// returned as a TransportError.
func (a *Aggregator) Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResult, error) {
	calls := a.plan(req)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range calls {
		call := &calls[i]
		g.Go(func() error {
			call.hits, call.err = a.catalog.Search(gctx, call.query)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &AggregateResult{SearchCalls: len(calls)}
	dedup := NewDeduplicator(a.maxCandidates)
	var lastErr error

	for _, call := range calls {
		if call.err != nil {
			result.SearchFailures++
			lastErr = call.err
			a.logger.Warn("search failed, skipping",
				"sort_by", call.query.SortBy,
				"category", call.query.Category,
				"page", call.query.Page,
				"error", call.err,
			)
			continue
		}
		result.TotalHits += len(call.hits)
		for _, hit := range call.hits {
			if !hit.Valid() || hit.ID == req.ParentID {
				continue
			}
			if !dedup.MarkSeen(hit.ID) {
				continue
			}
			if len(result.Candidates) < a.maxCandidates {
				result.Candidates = append(result.Candidates, hit)
			}
		}
	}

	if result.SearchCalls > 0 && result.SearchFailures == result.SearchCalls {
		var tErr *types.TransportError
		if errors.As(lastErr, &tErr) {
			return result, tErr
		}
		return result, &types.TransportError{Op: "search", Query: req.Title, Err: lastErr}
	}

	a.logger.Info("candidates aggregated",
		"parent_id", req.ParentID,
		"calls", result.SearchCalls,
		"failures", result.SearchFailures,
		"hits", result.TotalHits,
		"unique", dedup.Count(),
		"candidates", len(result.Candidates),
	)
	return result, nil
}

// plan lists the search calls in merge order.
func (a *Aggregator) plan(req AggregateRequest) []searchCall {
	filters := req.Categories
	if len(filters) == 0 {
		filters = []string{""}
	}
	pages := req.Pages
	if pages < 1 {
		pages = 1
	}

	calls := make([]searchCall, 0, len(types.SortStrategies)*len(filters)*pages)
	for _, sortBy := range types.SortStrategies {
		for _, category := range filters {
			for page := 1; page <= pages; page++ {
				calls = append(calls, searchCall{query: fetcher.SearchQuery{
					Title:       req.Title,
					Domain:      req.Domain,
					SortBy:      sortBy,
					Page:        page,
					Category:    category,
					GeoLocation: req.GeoLocation,
				}})
			}
		}
	}
	return calls
}
