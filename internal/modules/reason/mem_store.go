// README: In-memory request reason store (dev backend and tests).
package reason

import (
	"context"
	"sort"
	"sync"
	"time"

	"rumo/internal/types"
)

type MemStore struct {
	mu      sync.RWMutex
	reasons map[types.ID]*Reason
}

func NewMemStore() *MemStore {
	return &MemStore{reasons: make(map[types.ID]*Reason)}
}

func (s *MemStore) Create(_ context.Context, r *Reason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reasons[r.ID] = &cp
	return nil
}

func (s *MemStore) List(_ context.Context) ([]*Reason, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Reason{}
	for _, r := range s.reasons {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) Rename(_ context.Context, id types.ID, name string, at time.Time) (*Reason, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reasons[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Name = name
	r.UpdatedAt = at
	cp := *r
	return &cp, nil
}

func (s *MemStore) Delete(_ context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reasons[id]; !ok {
		return ErrNotFound
	}
	delete(s.reasons, id)
	return nil
}
