package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/compscout/internal/types"
)

// MemoryStore keeps records in a map guarded by one store-wide mutex.
// FileStore reuses it and persists after each mutation.
type MemoryStore struct {
	name    string
	mu      sync.Mutex
	records map[string]*types.Product
	stamp   *stamper
	persist func(map[string]*types.Product) error
	logger  *slog.Logger
}

// NewMemoryStore creates a non-persistent store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return newMemoryStore("memory", nil, logger)
}

func newMemoryStore(name string, persist func(map[string]*types.Product) error, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		name:    name,
		records: make(map[string]*types.Product),
		stamp:   newStamper(time.Nanosecond),
		persist: persist,
		logger:  logger.With("component", name+"_store"),
	}
}

func (s *MemoryStore) Name() string { return s.name }

func (s *MemoryStore) Upsert(_ context.Context, p *types.Product) (*types.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.records[p.ID]
	var prevUpdated time.Time
	if existed {
		prevUpdated = prev.UpdatedAt
	}
	rec := mergeRecord(prev, p, s.stamp.next(prevUpdated))
	s.records[rec.ID] = rec

	if err := s.flush("upsert"); err != nil {
		if existed {
			s.records[rec.ID] = prev
		} else {
			delete(s.records, rec.ID)
		}
		return nil, err
	}

	s.logger.Debug("record upserted", "id", rec.ID, "type", rec.Type, "created", !existed)
	return rec.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id].Clone(), nil
}

func (s *MemoryStore) Primary(_ context.Context) ([]*types.Product, error) {
	return s.selectWhere(func(p *types.Product) bool { return p.Type == types.TypePrimary }), nil
}

func (s *MemoryStore) Competitors(_ context.Context, parentID string) ([]*types.Product, error) {
	return s.selectWhere(func(p *types.Product) bool { return isCompetitorOf(p, parentID) }), nil
}

func (s *MemoryStore) All(_ context.Context) ([]*types.Product, error) {
	return s.selectWhere(func(*types.Product) bool { return true }), nil
}

func (s *MemoryStore) DeleteCompetitors(_ context.Context, parentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]*types.Product)
	for id, p := range s.records {
		if isCompetitorOf(p, parentID) {
			removed[id] = p
			delete(s.records, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := s.flush("delete_competitors"); err != nil {
		for id, p := range removed {
			s.records[id] = p
		}
		return 0, err
	}

	s.logger.Info("competitors deleted", "parent_id", parentID, "count", len(removed))
	return len(removed), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.records, id)
	if err := s.flush("delete"); err != nil {
		s.records[id] = prev
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.records
	s.records = make(map[string]*types.Product)
	if err := s.flush("clear"); err != nil {
		s.records = prev
		return err
	}
	s.logger.Info("store cleared", "removed", len(prev))
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// selectWhere returns sorted copies of every record matching keep.
func (s *MemoryStore) selectWhere(keep func(*types.Product) bool) []*types.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Product, 0, len(s.records))
	for _, p := range s.records {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sortProducts(out)
	return out
}

// flush persists the current state. Callers hold s.mu.
func (s *MemoryStore) flush(op string) error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist(s.records); err != nil {
		return &types.StorageError{Backend: s.name, Op: op, Err: err}
	}
	return nil
}
