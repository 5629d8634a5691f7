package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/fetcher"
	"github.com/IshaanNene/compscout/internal/storage"
	"github.com/IshaanNene/compscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeCatalog is an in-memory Catalog with scripted search and detail responses.
type fakeCatalog struct {
	mu         sync.Mutex
	details    map[string]*types.Product
	detailErrs map[string]error
	search     func(q fetcher.SearchQuery) ([]types.CandidateHit, error)
	searches   []fetcher.SearchQuery
	fetched    []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		details:    make(map[string]*types.Product),
		detailErrs: make(map[string]error),
		search: func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
			return nil, nil
		},
	}
}

func (f *fakeCatalog) withProduct(id, title string) *fakeCatalog {
	f.details[id] = &types.Product{ID: id, Title: title, Price: types.Float(10)}
	return f
}

func (f *fakeCatalog) FetchDetails(_ context.Context, id, domain, geo string) (*types.Product, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()

	if err := f.detailErrs[id]; err != nil {
		return nil, err
	}
	p, ok := f.details[id]
	if !ok {
		return nil, &types.ValidationError{ID: id, Field: "title", Reason: "missing from API response"}
	}
	out := p.Clone()
	out.Domain = domain
	out.GeoLocation = geo
	return out, nil
}

func (f *fakeCatalog) Search(_ context.Context, q fetcher.SearchQuery) ([]types.CandidateHit, error) {
	f.mu.Lock()
	f.searches = append(f.searches, q)
	f.mu.Unlock()
	return f.search(q)
}

func (f *fakeCatalog) fetchedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func testDiscoveryConfig() *config.DiscoveryConfig {
	return &config.DiscoveryConfig{
		Pages:         2,
		Limit:         20,
		MaxCandidates: 20,
		MaxCategories: 3,
		Concurrency:   4,
		DefaultDomain: "com",
	}
}

func seedParent(t *testing.T, store storage.Store) *types.Product {
	t.Helper()
	parent, err := store.Upsert(context.Background(), &types.Product{
		ID:         "P1",
		Type:       types.TypePrimary,
		Title:      "Wireless Mouse",
		Categories: []string{"Electronics"},
		Domain:     "com",
	})
	require.NoError(t, err)
	return parent
}

func hits(ids ...string) []types.CandidateHit {
	out := make([]types.CandidateHit, len(ids))
	for i, id := range ids {
		out[i] = types.CandidateHit{ID: id, Title: "Title " + id}
	}
	return out
}

func resultIDs(products []*types.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestAggregatorDedupExcludesParent(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.search = func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return []types.CandidateHit{
			{ID: "C1", Title: "Mouse A"},
			{ID: "C1", Title: "Mouse A dup"},
			{ID: "P1", Title: "self"},
		}, nil
	}

	agg := NewAggregator(catalog, 20, 4, testLogger)
	res, err := agg.Aggregate(context.Background(), AggregateRequest{
		ParentID:   "P1",
		Title:      "Wireless Mouse",
		Domain:     "com",
		Categories: []string{"Electronics"},
		Pages:      2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1"}, res.IDs())
	assert.Equal(t, "Mouse A", res.Candidates[0].Title, "first occurrence wins")
	assert.Equal(t, 6, res.SearchCalls)
	assert.Equal(t, 0, res.SearchFailures)
}

func TestAggregatorFanOutOrder(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.search = func(q fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return hits(fmt.Sprintf("%s-%s-%d", q.SortBy, q.Category, q.Page)), nil
	}

	agg := NewAggregator(catalog, 20, 3, testLogger)
	res, err := agg.Aggregate(context.Background(), AggregateRequest{
		ParentID:   "P1",
		Title:      "Mouse",
		Categories: []string{"A", "B"},
		Pages:      2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"featured-A-1", "featured-A-2", "featured-B-1", "featured-B-2",
		"price_ascending-A-1", "price_ascending-A-2", "price_ascending-B-1", "price_ascending-B-2",
		"price_descending-A-1", "price_descending-A-2", "price_descending-B-1", "price_descending-B-2",
	}, res.IDs())
}

func TestAggregatorNoCategoriesRunsOnePass(t *testing.T) {
	catalog := newFakeCatalog()
	agg := NewAggregator(catalog, 20, 2, testLogger)

	res, err := agg.Aggregate(context.Background(), AggregateRequest{ParentID: "P1", Title: "Mouse", Pages: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, 6, res.SearchCalls)

	for _, q := range catalog.searches {
		assert.Equal(t, "", q.Category)
	}
}

func TestAggregatorTruncates(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.search = func(q fetcher.SearchQuery) ([]types.CandidateHit, error) {
		var ids []string
		for i := 0; i < 10; i++ {
			ids = append(ids, fmt.Sprintf("%s-%d-%d", q.SortBy, q.Page, i))
		}
		return hits(ids...), nil
	}

	agg := NewAggregator(catalog, 5, 4, testLogger)
	res, err := agg.Aggregate(context.Background(), AggregateRequest{ParentID: "P1", Title: "Mouse", Pages: 1})
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 5)
	assert.Equal(t, "featured-1-0", res.Candidates[0].ID)
}

func TestAggregatorDegradesOnSearchFailure(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.search = func(q fetcher.SearchQuery) ([]types.CandidateHit, error) {
		if q.SortBy == types.SortPriceAscending {
			return nil, &types.TransportError{Op: "search", StatusCode: 503, Err: errors.New("unavailable")}
		}
		return hits(q.SortBy), nil
	}

	agg := NewAggregator(catalog, 20, 4, testLogger)
	res, err := agg.Aggregate(context.Background(), AggregateRequest{ParentID: "P1", Title: "Mouse", Pages: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"featured", "price_descending"}, res.IDs())
	assert.Equal(t, 1, res.SearchFailures)
}

func TestAggregatorAllSearchesFail(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.search = func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return nil, errors.New("connection refused")
	}

	agg := NewAggregator(catalog, 20, 4, testLogger)
	res, err := agg.Aggregate(context.Background(), AggregateRequest{ParentID: "P1", Title: "Mouse", Pages: 1})
	assert.ErrorIs(t, err, types.ErrTransport)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.SearchFailures)
}

func TestBatchFetcherIsolatesFailures(t *testing.T) {
	catalog := newFakeCatalog().withProduct("C1", "Mouse A").withProduct("C2", "Mouse B")
	catalog.detailErrs["C2"] = &types.TransportError{Op: "details", Query: "C2", Err: errors.New("timeout")}

	batch := NewBatchFetcher(catalog, 2, testLogger)
	report := batch.FetchAll(context.Background(), []string{"C1", "C2"}, "com", "")

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"C1"}, resultIDs(report.Products()))

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "C2", failures[0].ID)
	assert.ErrorIs(t, failures[0].Err, types.ErrTransport)
}

func TestBatchFetcherKeepsInputOrder(t *testing.T) {
	catalog := newFakeCatalog()
	ids := []string{"C1", "C2", "C3", "C4", "C5", "C6"}
	for _, id := range ids {
		catalog.withProduct(id, "Title "+id)
	}

	report := NewBatchFetcher(catalog, 3, testLogger).FetchAll(context.Background(), ids, "com", "")
	assert.Equal(t, ids, resultIDs(report.Products()))
}

func TestDeriveCategories(t *testing.T) {
	p := &types.Product{
		Categories:   []string{"Electronics", " ", "Mice"},
		CategoryPath: []string{"Electronics", "Computer Accessories", "Wireless"},
	}
	assert.Equal(t, []string{"Computer Accessories", "Electronics", "Mice"}, deriveCategories(p, 3))
	assert.Empty(t, deriveCategories(&types.Product{}, 3))
}

func TestDiscoverScenarioDedup(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	seedParent(t, store)

	catalog := newFakeCatalog().withProduct("C1", "Mouse A")
	catalog.search = func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return []types.CandidateHit{
			{ID: "C1", Title: "Mouse A"},
			{ID: "C1", Title: "Mouse A dup"},
			{ID: "P1", Title: "self"},
		}, nil
	}

	d := NewDiscoverer(catalog, store, testDiscoveryConfig(), nil, testLogger)
	res, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1"}, res.Candidates)
	require.Len(t, res.Competitors, 1)
	c := res.Competitors[0]
	assert.Equal(t, "C1", c.ID)
	assert.Equal(t, types.TypeCompetitor, c.Type)
	assert.Equal(t, "P1", c.ParentID)
	assert.Equal(t, "com", c.Domain)
	assert.Equal(t, []string{"Electronics"}, res.Categories)
	assert.NotEmpty(t, res.RunID)

	for _, q := range catalog.searches {
		assert.Equal(t, "Electronics", q.Category)
		assert.Equal(t, "Wireless Mouse", q.Title)
	}
}

func TestDiscoverSkipsFailedCandidates(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	seedParent(t, store)

	catalog := newFakeCatalog().withProduct("C1", "Mouse A").withProduct("C2", "Mouse B")
	catalog.detailErrs["C2"] = &types.TransportError{Op: "details", Query: "C2", Err: errors.New("timeout")}
	catalog.search = func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return hits("C1", "C2"), nil
	}

	d := NewDiscoverer(catalog, store, testDiscoveryConfig(), nil, testLogger)
	res, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1"}, resultIDs(res.Competitors))
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 1, res.Failed)

	stored, err := store.Competitors(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, resultIDs(stored))
}

func TestDiscoverRespectsLimit(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	seedParent(t, store)

	catalog := newFakeCatalog().withProduct("C1", "A").withProduct("C2", "B").withProduct("C3", "C")
	catalog.search = func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return hits("C1", "C2", "C3"), nil
	}

	d := NewDiscoverer(catalog, store, testDiscoveryConfig(), nil, testLogger)
	res, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1", Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1"}, catalog.fetchedIDs())
	assert.Equal(t, []string{"C1"}, resultIDs(res.Competitors))

	stored, err := store.Competitors(context.Background(), "P1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestDiscoverNeverReturnsParentOrDuplicates(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	seedParent(t, store)

	catalog := newFakeCatalog()
	for _, id := range []string{"C1", "C2", "C3", "C4"} {
		catalog.withProduct(id, "Title "+id)
	}
	// C4 resolves to the same listing as C1 once fetched
	catalog.details["C4"] = &types.Product{ID: "C1", Title: "Title C1 variant"}
	catalog.search = func(q fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return hits("P1", "C1", "C2", "C1", "C3", "C4"), nil
	}

	d := NewDiscoverer(catalog, store, testDiscoveryConfig(), nil, testLogger)
	res, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1", Limit: 4})
	require.NoError(t, err)

	ids := resultIDs(res.Competitors)
	assert.Equal(t, []string{"C1", "C2", "C3"}, ids)
	assert.Equal(t, 1, res.Skipped)
	assert.NotContains(t, ids, "P1")
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
}

func TestDiscoverNeverStoresUntitled(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	seedParent(t, store)

	catalog := newFakeCatalog().withProduct("C1", "Mouse A")
	catalog.details["C2"] = &types.Product{ID: "C2"}
	catalog.search = func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return hits("C1", "C2"), nil
	}

	d := NewDiscoverer(catalog, store, testDiscoveryConfig(), nil, testLogger)
	_, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1"})
	require.NoError(t, err)

	all, err := store.All(context.Background())
	require.NoError(t, err)
	for _, p := range all {
		assert.NotEmpty(t, p.Title, "record %s", p.ID)
	}
	got, err := store.Get(context.Background(), "C2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDiscoverEmptyCandidates(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	seedParent(t, store)

	d := NewDiscoverer(newFakeCatalog(), store, testDiscoveryConfig(), nil, testLogger)
	res, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1"})
	require.NoError(t, err)
	assert.NotNil(t, res.Competitors)
	assert.Empty(t, res.Competitors)
	assert.Empty(t, res.Candidates)
}

func TestDiscoverParentNotFound(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	d := NewDiscoverer(newFakeCatalog(), store, testDiscoveryConfig(), nil, testLogger)

	_, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "missing"})
	var nfErr *types.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "missing", nfErr.ID)
}

func TestDiscoverRejectsCompetitorParent(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	seedParent(t, store)
	_, err := store.Upsert(context.Background(), &types.Product{
		ID: "C1", Type: types.TypeCompetitor, ParentID: "P1", Title: "Title C1",
	})
	require.NoError(t, err)

	catalog := newFakeCatalog()
	d := NewDiscoverer(catalog, store, testDiscoveryConfig(), nil, testLogger)

	_, err = d.Discover(context.Background(), DiscoverRequest{ParentID: "C1"})
	var vErr *types.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "type", vErr.Field)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Empty(t, catalog.searches)

	comps, err := store.Competitors(context.Background(), "C1")
	require.NoError(t, err)
	assert.Empty(t, comps)
}

func TestDiscoverIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	seedParent(t, store)

	catalog := newFakeCatalog().withProduct("C1", "A").withProduct("C2", "B")
	catalog.search = func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return hits("C1", "C2"), nil
	}

	d := NewDiscoverer(catalog, store, testDiscoveryConfig(), nil, testLogger)
	first, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1"})
	require.NoError(t, err)
	second, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1"})
	require.NoError(t, err)

	assert.Equal(t, resultIDs(first.Competitors), resultIDs(second.Competitors))
	for i := range first.Competitors {
		assert.True(t, second.Competitors[i].UpdatedAt.After(first.Competitors[i].UpdatedAt))
		assert.Equal(t, first.Competitors[i].CreatedAt, second.Competitors[i].CreatedAt)
	}

	stored, err := store.Competitors(context.Background(), "P1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestDiscoverResolvesDomainAndGeo(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	_, err := store.Upsert(context.Background(), &types.Product{ID: "P1", Title: "Mouse", Domain: "co.uk"})
	require.NoError(t, err)
	_, err = store.Upsert(context.Background(), &types.Product{ID: "P2", Title: "Keyboard"})
	require.NoError(t, err)

	catalog := newFakeCatalog()
	d := NewDiscoverer(catalog, store, testDiscoveryConfig(), nil, testLogger)

	res, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1", Domain: "de", GeoLocation: "SW1A"})
	require.NoError(t, err)
	assert.Equal(t, "co.uk", res.Domain, "stored parent domain wins")
	assert.Equal(t, "SW1A", res.GeoLocation)

	res, err = d.Discover(context.Background(), DiscoverRequest{ParentID: "P2"})
	require.NoError(t, err)
	assert.Equal(t, "com", res.Domain)
	assert.Equal(t, "", res.GeoLocation)
}

func TestDiscoverSurfacesApiOutage(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	seedParent(t, store)

	catalog := newFakeCatalog()
	catalog.search = func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return nil, &types.TransportError{Op: "search", StatusCode: 401, Err: errors.New("unauthorized")}
	}

	d := NewDiscoverer(catalog, store, testDiscoveryConfig(), nil, testLogger)
	_, err := d.Discover(context.Background(), DiscoverRequest{ParentID: "P1"})
	assert.ErrorIs(t, err, types.ErrTransport)
}

func TestServiceLifecycle(t *testing.T) {
	store := storage.NewMemoryStore(testLogger)
	catalog := newFakeCatalog().withProduct("P1", "Wireless Mouse").withProduct("C1", "Mouse A")
	catalog.search = func(fetcher.SearchQuery) ([]types.CandidateHit, error) {
		return hits("C1"), nil
	}
	svc := NewService(catalog, store, testDiscoveryConfig(), nil, testLogger)
	ctx := context.Background()

	p, err := svc.ScrapeProduct(ctx, "P1", "", "10001")
	require.NoError(t, err)
	assert.Equal(t, types.TypePrimary, p.Type)
	assert.Equal(t, "com", p.Domain)
	assert.Equal(t, "10001", p.GeoLocation)

	_, err = svc.DiscoverCompetitors(ctx, DiscoverRequest{ParentID: "P1"})
	require.NoError(t, err)

	cached, err := svc.CachedCompetitors(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, resultIDs(cached))

	_, err = svc.CachedCompetitors(ctx, "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)

	n, err := svc.ClearCompetitors(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.DiscoverCompetitors(ctx, DiscoverRequest{ParentID: "P1"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(ctx, "P1"))
	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.ErrorIs(t, svc.DeleteProduct(ctx, "P1"), types.ErrNotFound)

	_, err = svc.ScrapeProduct(ctx, " ", "com", "")
	assert.ErrorIs(t, err, types.ErrValidation)
}
