package discovery

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/compscout/internal/fetcher"
	"github.com/IshaanNene/compscout/internal/types"
)

// FetchResult is the outcome of fetching one candidate.
type FetchResult struct {
	ID      string
	Product *types.Product
	Err     error
}

// OK reports whether the fetch produced a product.
func (r FetchResult) OK() bool {
	return r.Err == nil && r.Product != nil
}

// BatchReport collects per-item outcomes in input order.
type BatchReport struct {
	Results   []FetchResult
	Attempted int
	Succeeded int
	Failed    int
}

// Products returns the fetched products in input order.
func (r *BatchReport) Products() []*types.Product {
	out := make([]*types.Product, 0, r.Succeeded)
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res.Product)
		}
	}
	return out
}

// Failures returns the failed results in input order.
func (r *BatchReport) Failures() []FetchResult {
	var out []FetchResult
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// BatchFetcher fetches details for many identifiers with bounded parallelism.
// One failed identifier never aborts the batch.
type BatchFetcher struct {
	catalog     fetcher.Catalog
	concurrency int
	logger      *slog.Logger
}

// NewBatchFetcher creates a BatchFetcher.
func NewBatchFetcher(catalog fetcher.Catalog, concurrency int, logger *slog.Logger) *BatchFetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchFetcher{
		catalog:     catalog,
		concurrency: concurrency,
		logger:      logger.With("component", "batch_fetcher"),
	}
}

// FetchAll fetches every id and reports each outcome.
func (b *BatchFetcher) FetchAll(ctx context.Context, ids []string, domain, geoLocation string) *BatchReport {
	results := make([]FetchResult, len(ids))

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = b.fetchOne(ctx, id, domain, geoLocation)
			return nil
		})
	}
	_ = g.Wait()

	report := &BatchReport{Results: results, Attempted: len(ids)}
	for _, res := range results {
		if res.OK() {
			report.Succeeded++
			continue
		}
		report.Failed++
		b.logger.Warn("candidate fetch failed, skipping", "id", res.ID, "error", res.Err)
	}

	b.logger.Info("batch fetch complete",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)
	return report
}

func (b *BatchFetcher) fetchOne(ctx context.Context, id, domain, geoLocation string) FetchResult {
	if err := ctx.Err(); err != nil {
		return FetchResult{ID: id, Err: err}
	}
	product, err := b.catalog.FetchDetails(ctx, id, domain, geoLocation)
	if err != nil {
		return FetchResult{ID: id, Err: err}
	}
	if err := product.Validate(); err != nil {
		return FetchResult{ID: id, Err: err}
	}
	return FetchResult{ID: id, Product: product}
}
