// Package storage persists primary products and their competitors.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/observability"
	"github.com/IshaanNene/compscout/internal/types"
)

// Store is the interface for all product storage backends.
//
// Upsert merges into an existing record with the same ID. Reads return
// copies, so callers never hold references to stored state.
type Store interface {
	// Upsert validates and merges p, returning the stored record.
	Upsert(ctx context.Context, p *types.Product) (*types.Product, error)

	// Get returns the record with id, or nil when absent.
	Get(ctx context.Context, id string) (*types.Product, error)

	// Primary returns all primary products.
	Primary(ctx context.Context) ([]*types.Product, error)

	// Competitors returns all competitors of parentID.
	Competitors(ctx context.Context, parentID string) ([]*types.Product, error)

	// All returns every stored record.
	All(ctx context.Context) ([]*types.Product, error)

	// DeleteCompetitors removes all competitors of parentID.
	DeleteCompetitors(ctx context.Context, parentID string) (int, error)

	// Delete removes a single record.
	Delete(ctx context.Context, id string) (bool, error)

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Name returns the storage backend identifier.
	Name() string

	// Close flushes pending writes and releases resources.
	Close() error
}

// Open creates the backend selected by cfg.Type. A non-nil metrics wraps
// the backend with operation counters.
func Open(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger, metrics *observability.Metrics) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Type {
	case "file", "":
		store, err = NewFileStore(cfg.Path, logger)
	case "mongo":
		store, err = NewMongoStore(ctx, cfg, logger)
	case "memory":
		store = NewMemoryStore(logger)
	default:
		return nil, &types.ConfigurationError{Key: "storage.type", Reason: fmt.Sprintf("unsupported backend %q", cfg.Type)}
	}
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		store = NewInstrumentedStore(store, metrics, logger)
	}
	return store, nil
}

// stamper hands out UpdatedAt values that strictly increase, even when
// the wall clock stalls or steps backwards.
type stamper struct {
	resolution time.Duration
	last       time.Time
	now        func() time.Time
}

func newStamper(resolution time.Duration) *stamper {
	return &stamper{resolution: resolution, now: time.Now}
}

func (s *stamper) next(prev time.Time) time.Time {
	t := s.now().UTC().Truncate(s.resolution)
	if !t.After(s.last) {
		t = s.last.Add(s.resolution)
	}
	if !t.After(prev) {
		t = prev.Add(s.resolution)
	}
	s.last = t
	return t
}

// mergeRecord builds the record that an upsert of in over existing stores.
func mergeRecord(existing, in *types.Product, ts time.Time) *types.Product {
	var rec *types.Product
	if existing == nil {
		rec = in.Clone()
		rec.CreatedAt = ts
	} else {
		rec = existing.Clone()
		rec.Merge(in)
	}
	if rec.Type == "" {
		rec.Type = types.TypePrimary
	}
	if !rec.IsCompetitor() {
		rec.ParentID = ""
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = ts
	}
	rec.UpdatedAt = ts
	return rec
}

// sortProducts orders records by creation time, then ID.
func sortProducts(list []*types.Product) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func isCompetitorOf(p *types.Product, parentID string) bool {
	return p.IsCompetitor() && p.ParentID == parentID
}
