// README: In-memory unit store (dev backend and tests).
package unit

import (
	"context"
	"sort"
	"sync"
	"time"

	"rumo/internal/types"
)

type MemStore struct {
	mu    sync.RWMutex
	units map[types.ID]*Unit
}

func NewMemStore() *MemStore {
	return &MemStore{units: make(map[types.ID]*Unit)}
}

func (s *MemStore) Create(_ context.Context, u *Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.units[u.ID] = &cp
	return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemStore) List(_ context.Context, ids []types.ID) ([]*Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := map[types.ID]bool{}
	for _, id := range ids {
		allowed[id] = true
	}
	out := []*Unit{}
	for _, u := range s.units {
		if ids != nil && !allowed[u.ID] {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) Rename(_ context.Context, id types.ID, name string, at time.Time) (*Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Name = name
	u.UpdatedAt = at
	cp := *u
	return &cp, nil
}

func (s *MemStore) Delete(_ context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[id]; !ok {
		return ErrNotFound
	}
	delete(s.units, id)
	return nil
}
