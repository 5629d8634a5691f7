package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/fetcher"
	"github.com/IshaanNene/compscout/internal/observability"
	"github.com/IshaanNene/compscout/internal/storage"
	"github.com/IshaanNene/compscout/internal/types"
)

// Service is the entry point used by the CLI, the API and the SDK.
type Service struct {
	catalog       fetcher.Catalog
	store         storage.Store
	discoverer    *Discoverer
	defaultDomain string
	logger        *slog.Logger
}

// NewService wires a Discoverer over catalog and store.
func NewService(catalog fetcher.Catalog, store storage.Store, cfg *config.DiscoveryConfig, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		catalog:       catalog,
		store:         store,
		discoverer:    NewDiscoverer(catalog, store, cfg, metrics, logger),
		defaultDomain: firstNonEmpty(cfg.DefaultDomain, fetcher.DefaultDomain),
		logger:        logger.With("component", "product_service"),
	}
}

// Store returns the underlying store.
func (s *Service) Store() storage.Store { return s.store }

// ScrapeProduct fetches id and stores it as a primary product.
func (s *Service) ScrapeProduct(ctx context.Context, id, domain, geoLocation string) (*types.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &types.ValidationError{Field: "id", Reason: "missing"}
	}
	domain = firstNonEmpty(strings.TrimSpace(domain), s.defaultDomain)

	product, err := s.catalog.FetchDetails(ctx, id, domain, geoLocation)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", id, err)
	}
	product.Type = types.TypePrimary
	product.Domain = domain
	product.GeoLocation = geoLocation

	rec, err := s.store.Upsert(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", id, err)
	}
	s.logger.Info("product scraped", "id", rec.ID, "title", rec.Title, "domain", domain)
	return rec, nil
}

// DiscoverCompetitors runs one discovery pass.
func (s *Service) DiscoverCompetitors(ctx context.Context, req DiscoverRequest) (*DiscoveryResult, error) {
	return s.discoverer.Discover(ctx, req)
}

// Product returns a stored record or a NotFoundError.
func (s *Service) Product(ctx context.Context, id string) (*types.Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &types.NotFoundError{Kind: "product", ID: id}
	}
	return p, nil
}

// Products returns all primary products.
func (s *Service) Products(ctx context.Context) ([]*types.Product, error) {
	return s.store.Primary(ctx)
}

// CachedCompetitors returns the competitors already stored for parentID.
func (s *Service) CachedCompetitors(ctx context.Context, parentID string) ([]*types.Product, error) {
	if _, err := s.Product(ctx, parentID); err != nil {
		return nil, err
	}
	return s.store.Competitors(ctx, parentID)
}

// ClearCompetitors removes every competitor of parentID.
func (s *Service) ClearCompetitors(ctx context.Context, parentID string) (int, error) {
	n, err := s.store.DeleteCompetitors(ctx, parentID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("competitors cleared", "parent_id", parentID, "count", n)
	return n, nil
}

// DeleteProduct removes a product together with its competitors.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &types.NotFoundError{Kind: "product", ID: id}
	}
	n, err := s.store.DeleteCompetitors(ctx, id)
	if err != nil {
		return err
	}
	s.logger.Info("product deleted", "id", id, "competitors", n)
	return nil
}

// ClearAll empties the store.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("store cleared")
	return nil
}
