// README: Cost center service: CRUD, membership resolution, and restriction checks.
package costcenter

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"rumo/internal/geo"
	"rumo/internal/logger"
	"rumo/internal/modules/audit"
	"rumo/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("cost center not found")
	ErrConflict   = errors.New("cost center conflict")
)

// SpendSource reports how much a cost center has already committed in
// the month containing at. The ride store implements it.
type SpendSource interface {
	MonthToDateSpend(ctx context.Context, costCenterID types.ID, at time.Time) (int64, error)
}

// Auditor records administrative changes.
type Auditor interface {
	Append(ctx context.Context, eventType string, actorID types.ID, resourceType string, resourceID types.ID, details map[string]any)
}

type Service struct {
	store Store
	spend SpendSource
	audit Auditor
	log   logger.ILogger
	now   func() time.Time
}

func NewService(store Store, spend SpendSource, auditor Auditor, log logger.ILogger) *Service {
	return &Service{
		store: store,
		spend: spend,
		audit: auditor,
		log:   log,
		now:   time.Now,
	}
}

type CreateCommand struct {
	Actor              types.Identity
	UnitID             *types.ID
	Name               string
	Description        string
	MonthlyBudgetCents *int64
	MaxKmPerRide       *float64
	TimeWindowStartMin *int
	TimeWindowEndMin   *int
}

// Patch updates a cost center field by field. nil pointers leave the
// field untouched; the Clear flags reset the optional limits.
type Patch struct {
	Name        *string
	Description *string
	Blocked     *bool

	UnitID    *types.ID
	ClearUnit bool

	MonthlyBudgetCents *int64
	ClearMonthlyBudget bool
	MaxKmPerRide       *float64
	ClearMaxKm         bool
	TimeWindowStartMin *int
	TimeWindowEndMin   *int
	ClearTimeWindow    bool
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*CostCenter, error) {
	if cmd.Name == "" {
		return nil, ErrBadRequest
	}
	if err := validateWindow(cmd.TimeWindowStartMin, cmd.TimeWindowEndMin); err != nil {
		return nil, err
	}
	now := s.now()
	cc := &CostCenter{
		ID:                 newID(),
		UnitID:             cmd.UnitID,
		Name:               cmd.Name,
		Description:        cmd.Description,
		MonthlyBudgetCents: cmd.MonthlyBudgetCents,
		MaxKmPerRide:       cmd.MaxKmPerRide,
		TimeWindowStartMin: cmd.TimeWindowStartMin,
		TimeWindowEndMin:   cmd.TimeWindowEndMin,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Create(ctx, cc); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventCostCenterCreated, cmd.Actor.ID, cc.ID, map[string]any{"name": cc.Name})
	return cc, nil
}

func (s *Service) Update(ctx context.Context, actor types.Identity, id types.ID, p Patch) (*CostCenter, error) {
	cc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		if *p.Name == "" {
			return nil, ErrBadRequest
		}
		cc.Name = *p.Name
	}
	if p.Description != nil {
		cc.Description = *p.Description
	}
	if p.Blocked != nil {
		cc.Blocked = *p.Blocked
	}
	if p.ClearUnit {
		cc.UnitID = nil
	} else if p.UnitID != nil {
		cc.UnitID = p.UnitID
	}
	if p.ClearMonthlyBudget {
		cc.MonthlyBudgetCents = nil
	} else if p.MonthlyBudgetCents != nil {
		cc.MonthlyBudgetCents = p.MonthlyBudgetCents
	}
	if p.ClearMaxKm {
		cc.MaxKmPerRide = nil
	} else if p.MaxKmPerRide != nil {
		cc.MaxKmPerRide = p.MaxKmPerRide
	}
	if p.ClearTimeWindow {
		cc.TimeWindowStartMin = nil
		cc.TimeWindowEndMin = nil
	} else {
		if p.TimeWindowStartMin != nil {
			cc.TimeWindowStartMin = p.TimeWindowStartMin
		}
		if p.TimeWindowEndMin != nil {
			cc.TimeWindowEndMin = p.TimeWindowEndMin
		}
	}
	if err := validateWindow(cc.TimeWindowStartMin, cc.TimeWindowEndMin); err != nil {
		return nil, err
	}
	cc.UpdatedAt = s.now()
	if err := s.store.Update(ctx, cc); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventCostCenterUpdated, actor.ID, cc.ID, map[string]any{"name": cc.Name})
	return cc, nil
}

func (s *Service) Delete(ctx context.Context, actor types.Identity, id types.ID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, audit.EventCostCenterDeleted, actor.ID, id, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, viewer types.Identity, id types.ID) (*CostCenter, error) {
	if viewer.Role == types.RoleUnitManager {
		member, err := s.isMember(ctx, viewer.ID, id)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, ErrNotFound
		}
	}
	return s.store.Get(ctx, id)
}

// ListFor returns every cost center for central managers and the
// member cost centers for unit managers.
func (s *Service) ListFor(ctx context.Context, viewer types.Identity) ([]*CostCenter, error) {
	if viewer.Role == types.RoleCentralManager {
		return s.store.List(ctx, nil)
	}
	ids, err := s.store.MemberCostCenters(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*CostCenter{}, nil
	}
	return s.store.List(ctx, ids)
}

func (s *Service) Areas(ctx context.Context, costCenterID types.ID) ([]AllowedArea, error) {
	if _, err := s.store.Get(ctx, costCenterID); err != nil {
		return nil, err
	}
	return s.store.Areas(ctx, costCenterID)
}

func (s *Service) AddArea(ctx context.Context, actor types.Identity, a AllowedArea) (*AllowedArea, error) {
	if a.Kind != AreaOrigin && a.Kind != AreaDestination {
		return nil, ErrBadRequest
	}
	if a.RadiusKm <= 0 {
		return nil, ErrBadRequest
	}
	if _, err := s.store.Get(ctx, a.CostCenterID); err != nil {
		return nil, err
	}
	a.ID = newID()
	if err := s.store.AddArea(ctx, &a); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventCostCenterUpdated, actor.ID, a.CostCenterID, map[string]any{
		"area_added": a.Kind,
		"radius_km":  a.RadiusKm,
	})
	return &a, nil
}

func (s *Service) RemoveArea(ctx context.Context, actor types.Identity, costCenterID, areaID types.ID) error {
	if err := s.store.RemoveArea(ctx, costCenterID, areaID); err != nil {
		return err
	}
	s.record(ctx, audit.EventCostCenterUpdated, actor.ID, costCenterID, map[string]any{"area_removed": string(areaID)})
	return nil
}

func (s *Service) AddMember(ctx context.Context, actor types.Identity, costCenterID, userID types.ID) error {
	if userID == "" {
		return ErrBadRequest
	}
	if _, err := s.store.Get(ctx, costCenterID); err != nil {
		return err
	}
	if err := s.store.AddMember(ctx, costCenterID, userID); err != nil {
		return err
	}
	s.record(ctx, audit.EventCostCenterUpdated, actor.ID, costCenterID, map[string]any{"member_added": string(userID)})
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, actor types.Identity, costCenterID, userID types.ID) error {
	if err := s.store.RemoveMember(ctx, costCenterID, userID); err != nil {
		return err
	}
	s.record(ctx, audit.EventCostCenterUpdated, actor.ID, costCenterID, map[string]any{"member_removed": string(userID)})
	return nil
}

func (s *Service) Members(ctx context.Context, costCenterID types.ID) ([]types.ID, error) {
	if _, err := s.store.Get(ctx, costCenterID); err != nil {
		return nil, err
	}
	return s.store.Members(ctx, costCenterID)
}

// UnitsOf returns the distinct units owning the given cost centers. The
// unit module uses it to scope unit listings for unit managers.
func (s *Service) UnitsOf(ctx context.Context, ccIDs []types.ID) ([]types.ID, error) {
	if len(ccIDs) == 0 {
		return nil, nil
	}
	centers, err := s.store.List(ctx, ccIDs)
	if err != nil {
		return nil, err
	}
	seen := map[types.ID]bool{}
	out := []types.ID{}
	for _, cc := range centers {
		if cc.UnitID == nil || seen[*cc.UnitID] {
			continue
		}
		seen[*cc.UnitID] = true
		out = append(out, *cc.UnitID)
	}
	return out, nil
}

// MemberCostCenters satisfies the ride module's policy port.
func (s *Service) MemberCostCenters(ctx context.Context, userID types.ID) ([]types.ID, error) {
	if userID == "" {
		return nil, nil
	}
	return s.store.MemberCostCenters(ctx, userID)
}

// Resolve picks the cost center a ride books against. With no
// memberships the ride is personal and no cost center applies; a single
// membership is used implicitly; with several, the requester must name
// one, and it must be among their memberships.
func (s *Service) Resolve(ctx context.Context, requesterID, explicitID types.ID) (types.ID, error) {
	memberships, err := s.MemberCostCenters(ctx, requesterID)
	if err != nil {
		return "", err
	}
	if explicitID != "" {
		for _, id := range memberships {
			if id == explicitID {
				return explicitID, nil
			}
		}
		return "", &PolicyError{Reason: ReasonNotMember, Message: "requester does not belong to this cost center"}
	}
	switch len(memberships) {
	case 0:
		return "", nil
	case 1:
		return memberships[0], nil
	default:
		return "", &PolicyError{Reason: ReasonCostCenterRequired, Message: "requester belongs to several cost centers; one must be chosen"}
	}
}

// Check runs the cost center's restrictions against a ride request in a
// fixed order, reporting the first violation. The monthly budget uses a
// read-then-decide check: two requests racing past the same remaining
// budget may both pass.
func (s *Service) Check(ctx context.Context, costCenterID types.ID, pickup, destination *types.Point, estimatedPriceCents int64, estimatedDistanceKm float64) error {
	cc, err := s.store.Get(ctx, costCenterID)
	if err != nil {
		return err
	}

	if cc.Blocked {
		return &PolicyError{Reason: ReasonBlocked, Message: "cost center is blocked for new rides"}
	}

	if cc.TimeWindowStartMin != nil && cc.TimeWindowEndMin != nil {
		now := s.now()
		cur := now.Hour()*60 + now.Minute()
		start, end := *cc.TimeWindowStartMin, *cc.TimeWindowEndMin
		crossesMidnight := end <= start
		inWindow := cur >= start && cur < end
		if crossesMidnight {
			inWindow = cur >= start || cur < end
		}
		if !inWindow {
			return &PolicyError{
				Reason:  ReasonOutsideTimeWindow,
				Message: fmt.Sprintf("rides allowed only between %s and %s", minutesClock(start), minutesClock(end)),
			}
		}
	}

	if cc.MaxKmPerRide != nil && estimatedDistanceKm > *cc.MaxKmPerRide {
		return &PolicyError{
			Reason:  ReasonMaxKmExceeded,
			Message: fmt.Sprintf("maximum distance for this cost center is %.1f km", *cc.MaxKmPerRide),
		}
	}

	if cc.MonthlyBudgetCents != nil && s.spend == nil {
		s.log.Warning("monthly budget configured but no spend source wired",
			logger.String("costCenterId", string(cc.ID)))
	}
	if cc.MonthlyBudgetCents != nil && s.spend != nil {
		spent, err := s.spend.MonthToDateSpend(ctx, cc.ID, s.now())
		if err != nil {
			return err
		}
		if spent+estimatedPriceCents > *cc.MonthlyBudgetCents {
			return &PolicyError{
				Reason:  ReasonBudgetExceeded,
				Message: fmt.Sprintf("monthly budget of %s reached", types.Money(*cc.MonthlyBudgetCents).BRL()),
			}
		}
	}

	areas, err := s.store.Areas(ctx, cc.ID)
	if err != nil {
		return err
	}
	if err := checkAreas(areas, AreaOrigin, pickup, ReasonOriginNotAllowed, "pickup is outside the allowed areas"); err != nil {
		return err
	}
	if err := checkAreas(areas, AreaDestination, destination, ReasonDestNotAllowed, "destination is outside the allowed areas"); err != nil {
		return err
	}
	return nil
}

// checkAreas enforces one geofence kind. Rides without coordinates for
// the endpoint are not rejected; there is nothing to measure.
func checkAreas(areas []AllowedArea, kind string, p *types.Point, reason, message string) error {
	if p == nil {
		return nil
	}
	matched := false
	any := false
	for _, a := range areas {
		if a.Kind != kind {
			continue
		}
		any = true
		if geo.HaversineKm(*p, a.Center) <= a.RadiusKm {
			matched = true
			break
		}
	}
	if any && !matched {
		return &PolicyError{Reason: reason, Message: message}
	}
	return nil
}

func (s *Service) isMember(ctx context.Context, userID, costCenterID types.ID) (bool, error) {
	ids, err := s.store.MemberCostCenters(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == costCenterID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) record(ctx context.Context, eventType string, actorID types.ID, id types.ID, details map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Append(ctx, eventType, actorID, "cost_center", id, details)
}

func validateWindow(start, end *int) error {
	if (start == nil) != (end == nil) {
		return ErrBadRequest
	}
	if start == nil {
		return nil
	}
	if *start < 0 || *start > 1439 || *end < 0 || *end > 1439 {
		return ErrBadRequest
	}
	return nil
}

func minutesClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
