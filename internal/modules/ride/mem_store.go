// README: In-memory ride store (dev backend and tests).
package ride

import (
	"context"
	"sort"
	"sync"
	"time"

	"rumo/internal/types"
)

// MemStore keeps rides in process memory. The mutex gives UpdateStatus
// the same one-winner guarantee as the conditional SQL update, so the
// lifecycle and race behaviour can be exercised without a database.
type MemStore struct {
	mu     sync.Mutex
	rides  map[types.ID]*Ride
	tracks map[types.ID][]TrackPoint
}

func NewMemStore() *MemStore {
	return &MemStore{
		rides:  make(map[types.ID]*Ride),
		tracks: make(map[types.ID][]TrackPoint),
	}
}

func (s *MemStore) Create(_ context.Context, r *Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rides[r.ID] = &cp
	return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemStore) List(_ context.Context, f Filter) ([]*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*Ride{}
	for _, r := range s.rides {
		if !matches(r, f) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(r *Ride, f Filter) bool {
	if f.CostCenterIDs != nil {
		if r.CostCenterID == nil {
			return false
		}
		found := false
		for _, id := range f.CostCenterIDs {
			if *r.CostCenterID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.InvolvedUser != "" {
		involved := r.RequesterID == f.InvolvedUser ||
			(r.DriverID != nil && *r.DriverID == f.InvolvedUser)
		if !involved {
			return false
		}
	}
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.CreatedFrom != nil && r.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && r.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func (s *MemStore) UpdateStatus(_ context.Context, u StatusUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[u.ID]
	if !ok {
		return false, nil
	}
	if r.Status != u.From {
		return false, nil
	}
	if u.RequireDriver != "" {
		if r.DriverID == nil || *r.DriverID != u.RequireDriver {
			return false, nil
		}
	}

	r.Status = u.To
	at := u.At
	if u.Driver != nil {
		id := u.Driver.ID
		name := u.Driver.Name
		plate := u.Driver.VehiclePlate
		r.DriverID = &id
		r.DriverName = &name
		r.VehiclePlate = &plate
	}
	if u.Actuals != nil {
		price := u.Actuals.PriceCents
		dist := u.Actuals.DistanceKm
		dur := u.Actuals.DurationMin
		r.ActualPriceCents = &price
		r.ActualDistanceKm = &dist
		r.ActualDurationMin = &dur
	}
	switch u.To {
	case StatusAccepted:
		r.AcceptedAt = &at
	case StatusDriverArrived:
		r.ArrivedAt = &at
	case StatusInProgress:
		r.StartedAt = &at
	case StatusCompleted:
		r.CompletedAt = &at
	case StatusCancelled:
		r.CancelledAt = &at
		reason := u.CancelReason
		r.CancelReason = &reason
		if u.CancelledBy != "" {
			by := u.CancelledBy
			r.CancelledBy = &by
		}
	}
	return true, nil
}

func (s *MemStore) SetRating(_ context.Context, id, requesterID types.ID, rating int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[id]
	if !ok {
		return false, nil
	}
	if r.RequesterID != requesterID || r.Status != StatusCompleted || r.Rating != nil {
		return false, nil
	}
	r.Rating = &rating
	return true, nil
}

func (s *MemStore) AppendTrack(_ context.Context, rideID types.ID, during Status, points []TrackPoint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	if !ok || r.Status != during {
		return false, nil
	}
	track := s.tracks[rideID]
	for _, p := range points {
		p.Seq = len(track) + 1
		track = append(track, p)
	}
	s.tracks[rideID] = track
	return true, nil
}

func (s *MemStore) Track(_ context.Context, rideID types.ID) ([]TrackPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TrackPoint{}, s.tracks[rideID]...), nil
}

func (s *MemStore) MonthToDateSpend(_ context.Context, costCenterID types.ID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, r := range s.rides {
		if r.CostCenterID == nil || *r.CostCenterID != costCenterID {
			continue
		}
		if r.Status == StatusCancelled {
			continue
		}
		if r.CreatedAt.Year() != at.Year() || r.CreatedAt.Month() != at.Month() {
			continue
		}
		total += r.EstimatedPriceCents
	}
	return total, nil
}
