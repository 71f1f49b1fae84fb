// README: In-memory presence and token stores (dev backend and tests).
package driver

import (
	"context"
	"sort"
	"sync"

	"rumo/internal/geo"
	"rumo/internal/types"
)

type MemPresence struct {
	mu        sync.RWMutex
	online    map[types.ID]struct{}
	positions map[types.ID]types.Point
}

func NewMemPresence() *MemPresence {
	return &MemPresence{
		online:    make(map[types.ID]struct{}),
		positions: make(map[types.ID]types.Point),
	}
}

func (p *MemPresence) SetOnline(_ context.Context, id types.ID, pos *types.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[id] = struct{}{}
	if pos != nil {
		p.positions[id] = *pos
	}
	return nil
}

func (p *MemPresence) SetOffline(_ context.Context, id types.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, id)
	delete(p.positions, id)
	return nil
}

func (p *MemPresence) IsOnline(_ context.Context, id types.ID) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[id]
	return ok, nil
}

func (p *MemPresence) OnlineDrivers(_ context.Context) ([]types.ID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := []types.ID{}
	for id := range p.online {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (p *MemPresence) Position(_ context.Context, id types.ID) (*types.Point, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[id]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (p *MemPresence) Nearby(_ context.Context, at types.Point, radiusKm float64) ([]types.ID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	type hit struct {
		id types.ID
		km float64
	}
	hits := []hit{}
	for id := range p.online {
		pos, ok := p.positions[id]
		if !ok {
			continue
		}
		if d := geo.HaversineKm(at, pos); d <= radiusKm {
			hits = append(hits, hit{id, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].km < hits[j].km })
	out := make([]types.ID, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out, nil
}

type tokenKey struct {
	userID types.ID
	token  string
}

type MemTokenStore struct {
	mu         sync.RWMutex
	drivers    map[tokenKey]struct{}
	passengers map[tokenKey]struct{}
}

func NewMemTokenStore() *MemTokenStore {
	return &MemTokenStore{
		drivers:    make(map[tokenKey]struct{}),
		passengers: make(map[tokenKey]struct{}),
	}
}

func (s *MemTokenStore) SaveDriverToken(_ context.Context, userID types.ID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[tokenKey{userID, token}] = struct{}{}
	return nil
}

func (s *MemTokenStore) SavePassengerToken(_ context.Context, userID types.ID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passengers[tokenKey{userID, token}] = struct{}{}
	return nil
}

func (s *MemTokenStore) DriverTokens(_ context.Context, userIDs []types.ID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := map[types.ID]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	out := []string{}
	for k := range s.drivers {
		if want[k.userID] {
			out = append(out, k.token)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemTokenStore) PassengerTokens(_ context.Context, userID types.ID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{}
	for k := range s.passengers {
		if k.userID == userID {
			out = append(out, k.token)
		}
	}
	sort.Strings(out)
	return out, nil
}
