package storage

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/compscout/internal/observability"
	"github.com/IshaanNene/compscout/internal/types"
)

// InstrumentedStore wraps a backend and counts its mutations.
type InstrumentedStore struct {
	Store
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewInstrumentedStore wraps backend with operation metrics.
func NewInstrumentedStore(backend Store, metrics *observability.Metrics, logger *slog.Logger) *InstrumentedStore {
	return &InstrumentedStore{
		Store:   backend,
		metrics: metrics,
		logger:  logger.With("component", "instrumented_store", "backend", backend.Name()),
	}
}

func (s *InstrumentedStore) Upsert(ctx context.Context, p *types.Product) (*types.Product, error) {
	rec, err := s.Store.Upsert(ctx, p)
	s.record("upsert", err)
	return rec, err
}

func (s *InstrumentedStore) DeleteCompetitors(ctx context.Context, parentID string) (int, error) {
	n, err := s.Store.DeleteCompetitors(ctx, parentID)
	s.record("delete_competitors", err)
	return n, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.Store.Delete(ctx, id)
	s.record("delete", err)
	return ok, err
}

func (s *InstrumentedStore) Clear(ctx context.Context) error {
	err := s.Store.Clear(ctx)
	s.record("clear", err)
	return err
}

// Unwrap returns the wrapped backend.
func (s *InstrumentedStore) Unwrap() Store { return s.Store }

func (s *InstrumentedStore) record(op string, err error) {
	if err != nil {
		s.metrics.RecordStoreOp(s.Store.Name(), op+"_error")
		s.logger.Debug("store operation failed", "op", op, "error", err)
		return
	}
	s.metrics.RecordStoreOp(s.Store.Name(), op)
}
