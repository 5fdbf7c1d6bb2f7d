package runstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/astro-run/constellation-runtime/constellation"
)

// MemoryStore is an in-process Store backed by a map, grounded on the
// teacher's graph/store/memory.go (MemStore[S]). Records are deep-copied on
// write and read via a JSON round trip so a caller mutating a Run it
// fetched can never corrupt the store's copy — the same defensive-copy
// rationale the teacher's MemStore uses for generic state S.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*constellation.Run
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*constellation.Run)}
}

// UpsertRun implements Store.
func (s *MemoryStore) UpsertRun(ctx context.Context, record *constellation.Run) error {
	cp, err := deepCopy(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[record.ID] = cp
	s.mu.Unlock()
	return nil
}

// GetRun implements Store.
func (s *MemoryStore) GetRun(ctx context.Context, id string) (*constellation.Run, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(rec)
}

func deepCopy(r *constellation.Run) (*constellation.Run, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var cp constellation.Run
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
