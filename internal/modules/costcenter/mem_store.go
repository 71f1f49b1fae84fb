// README: In-memory cost center store (dev backend and tests).
package costcenter

import (
	"context"
	"sort"
	"sync"

	"rumo/internal/types"
)

type memberKey struct {
	costCenterID types.ID
	userID       types.ID
}

type MemStore struct {
	mu      sync.RWMutex
	centers map[types.ID]*CostCenter
	areas   map[types.ID][]AllowedArea
	members map[memberKey]struct{}
}

func NewMemStore() *MemStore {
	return &MemStore{
		centers: make(map[types.ID]*CostCenter),
		areas:   make(map[types.ID][]AllowedArea),
		members: make(map[memberKey]struct{}),
	}
}

func (s *MemStore) Create(_ context.Context, cc *CostCenter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cc
	s.centers[cc.ID] = &cp
	return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*CostCenter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cc, ok := s.centers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cc
	return &cp, nil
}

func (s *MemStore) List(_ context.Context, ids []types.ID) ([]*CostCenter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := map[types.ID]bool{}
	for _, id := range ids {
		allowed[id] = true
	}
	out := []*CostCenter{}
	for _, cc := range s.centers {
		if ids != nil && !allowed[cc.ID] {
			continue
		}
		cp := *cc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) Update(_ context.Context, cc *CostCenter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.centers[cc.ID]; !ok {
		return ErrNotFound
	}
	cp := *cc
	s.centers[cc.ID] = &cp
	return nil
}

func (s *MemStore) Delete(_ context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.centers[id]; !ok {
		return ErrNotFound
	}
	delete(s.centers, id)
	delete(s.areas, id)
	for k := range s.members {
		if k.costCenterID == id {
			delete(s.members, k)
		}
	}
	return nil
}

func (s *MemStore) Areas(_ context.Context, costCenterID types.ID) ([]AllowedArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AllowedArea{}, s.areas[costCenterID]...), nil
}

func (s *MemStore) AddArea(_ context.Context, a *AllowedArea) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.areas[a.CostCenterID] = append(s.areas[a.CostCenterID], *a)
	return nil
}

func (s *MemStore) RemoveArea(_ context.Context, costCenterID, areaID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	areas := s.areas[costCenterID]
	for i, a := range areas {
		if a.ID == areaID {
			s.areas[costCenterID] = append(areas[:i], areas[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemStore) MemberCostCenters(_ context.Context, userID types.ID) ([]types.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []types.ID{}
	for k := range s.members {
		if k.userID == userID {
			out = append(out, k.costCenterID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *MemStore) AddMember(_ context.Context, costCenterID, userID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey{costCenterID, userID}] = struct{}{}
	return nil
}

func (s *MemStore) RemoveMember(_ context.Context, costCenterID, userID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{costCenterID, userID}
	if _, ok := s.members[k]; !ok {
		return ErrNotFound
	}
	delete(s.members, k)
	return nil
}

func (s *MemStore) Members(_ context.Context, costCenterID types.ID) ([]types.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []types.ID{}
	for k := range s.members {
		if k.costCenterID == costCenterID {
			out = append(out, k.userID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
