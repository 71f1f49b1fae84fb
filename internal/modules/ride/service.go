// README: Ride service implements state transitions, policy checks, and visibility.
package ride

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"rumo/internal/logger"
	"rumo/internal/modules/audit"
	"rumo/internal/types"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("ride not found")
	ErrConflict     = errors.New("ride state conflict")
	ErrInvalidState = errors.New("invalid state transition")
	ErrForbidden    = errors.New("forbidden")
)

// Pricing produces the fare estimate for a trip. Either point may be
// nil, in which case the implementation falls back to a default trip
// shape.
type Pricing interface {
	Estimate(ctx context.Context, pickup, dropoff *types.Point) (distanceKm float64, durationMin int, priceCents int64, err error)
}

// Policy resolves which cost center a request books against and
// enforces that cost center's restrictions.
type Policy interface {
	Resolve(ctx context.Context, requesterID, explicitID types.ID) (types.ID, error)
	Check(ctx context.Context, costCenterID types.ID, pickup, destination *types.Point, estimatedPriceCents int64, estimatedDistanceKm float64) error
	MemberCostCenters(ctx context.Context, userID types.ID) ([]types.ID, error)
}

// Notifier delivers push messages. Implementations must never fail a
// ride operation; delivery is best effort.
type Notifier interface {
	NotifyRideRequested(ctx context.Context, tokens []string, rideID types.ID, pickupAddress, destinationAddress, formattedPrice string)
	NotifyRideAccepted(ctx context.Context, tokens []string, rideID types.ID, driverName, vehiclePlate string)
}

// TokenSource looks up device tokens for push delivery.
type TokenSource interface {
	OnlineDriverTokens(ctx context.Context) ([]string, error)
	PassengerTokens(ctx context.Context, userID types.ID) ([]string, error)
}

// Auditor records what happened. Append never returns an error; audit
// failures must not abort the operation being recorded.
type Auditor interface {
	Append(ctx context.Context, eventType string, actorID types.ID, resourceType string, resourceID types.ID, details map[string]any)
}

type Service struct {
	store    Store
	pricing  Pricing
	policy   Policy
	notifier Notifier
	tokens   TokenSource
	audit    Auditor
	log      logger.ILogger
	now      func() time.Time
}

func NewService(store Store, pricing Pricing, policy Policy, notifier Notifier, tokens TokenSource, auditor Auditor, log logger.ILogger) *Service {
	return &Service{
		store:    store,
		pricing:  pricing,
		policy:   policy,
		notifier: notifier,
		tokens:   tokens,
		audit:    auditor,
		log:      log,
		now:      time.Now,
	}
}

type CreateCommand struct {
	Requester          types.Identity
	PickupAddress      string
	Pickup             *types.Point
	DestinationAddress string
	Destination        *types.Point
	CostCenterID       types.ID // empty: resolve from memberships
}

type AcceptCommand struct {
	RideID       types.ID
	Driver       types.Identity
	DriverName   string
	VehiclePlate string
}

type ArriveCommand struct {
	RideID types.ID
	Driver types.Identity
}

type StartCommand struct {
	RideID types.ID
	Driver types.Identity
}

type CompleteCommand struct {
	RideID      types.ID
	Driver      types.Identity
	PriceCents  int64
	DistanceKm  *float64
	DurationMin *int
}

type CancelCommand struct {
	RideID types.ID
	Actor  types.Identity
	Reason string
}

type RateCommand struct {
	RideID types.ID
	Actor  types.Identity
	Rating int
}

type TrackCommand struct {
	RideID types.ID
	Driver types.Identity
	Points []types.Point
}

// Create books a new ride. The fare is estimated server side, the cost
// center is resolved from the requester's memberships (or the explicit
// choice), and every restriction of the resolved cost center must pass
// before the ride is persisted.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Ride, error) {
	if cmd.PickupAddress == "" || cmd.DestinationAddress == "" {
		return nil, ErrBadRequest
	}

	distanceKm, durationMin, priceCents, err := s.pricing.Estimate(ctx, cmd.Pickup, cmd.Destination)
	if err != nil {
		return nil, err
	}

	var costCenterID *types.ID
	if s.policy != nil {
		ccID, err := s.policy.Resolve(ctx, cmd.Requester.ID, cmd.CostCenterID)
		if err != nil {
			return nil, err
		}
		if ccID != "" {
			if err := s.policy.Check(ctx, ccID, cmd.Pickup, cmd.Destination, priceCents, distanceKm); err != nil {
				return nil, err
			}
			costCenterID = &ccID
		}
	}

	r := &Ride{
		ID:                   newID(),
		RequesterID:          cmd.Requester.ID,
		CostCenterID:         costCenterID,
		PickupAddress:        cmd.PickupAddress,
		Pickup:               cmd.Pickup,
		DestinationAddress:   cmd.DestinationAddress,
		Destination:          cmd.Destination,
		EstimatedDistanceKm:  distanceKm,
		EstimatedDurationMin: durationMin,
		EstimatedPriceCents:  priceCents,
		Status:               StatusRequested,
		CreatedAt:            s.now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	s.record(ctx, audit.EventRideRequested, cmd.Requester.ID, r.ID, map[string]any{
		"pickup":                cmd.PickupAddress,
		"destination":           cmd.DestinationAddress,
		"estimated_price_cents": priceCents,
	})
	s.pushRequested(r)
	return r, nil
}

// Accept assigns the calling driver to a requested ride. When several
// drivers race for the same ride the conditional update lets exactly
// one through; the rest get ErrConflict.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(r.Status, StatusAccepted) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, StatusUpdate{
		ID:   r.ID,
		From: StatusRequested,
		To:   StatusAccepted,
		Driver: &DriverAssignment{
			ID:           cmd.Driver.ID,
			Name:         cmd.DriverName,
			VehiclePlate: cmd.VehiclePlate,
		},
		At: s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	s.record(ctx, audit.EventRideAccepted, cmd.Driver.ID, r.ID, map[string]any{
		"driver_name":   cmd.DriverName,
		"vehicle_plate": cmd.VehiclePlate,
	})
	s.pushAccepted(r, cmd.DriverName, cmd.VehiclePlate)
	return s.store.Get(ctx, r.ID)
}

// Arrive marks the assigned driver as waiting at the pickup point.
func (s *Service) Arrive(ctx context.Context, cmd ArriveCommand) (*Ride, error) {
	return s.driverTransition(ctx, cmd.RideID, cmd.Driver, StatusDriverArrived, audit.EventRideArrived, nil)
}

// Start begins the trip.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Ride, error) {
	return s.driverTransition(ctx, cmd.RideID, cmd.Driver, StatusInProgress, audit.EventRideStarted, nil)
}

// Complete finishes the trip and records the actual figures. Actual
// distance and duration default to the estimates when not reported.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Ride, error) {
	if cmd.PriceCents <= 0 {
		return nil, ErrBadRequest
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	actuals := &Actuals{
		PriceCents:  cmd.PriceCents,
		DistanceKm:  r.EstimatedDistanceKm,
		DurationMin: r.EstimatedDurationMin,
	}
	if cmd.DistanceKm != nil {
		actuals.DistanceKm = *cmd.DistanceKm
	}
	if cmd.DurationMin != nil {
		actuals.DurationMin = *cmd.DurationMin
	}
	return s.driverTransition(ctx, cmd.RideID, cmd.Driver, StatusCompleted, audit.EventRideCompleted, actuals)
}

// Cancel aborts a ride from any non-terminal status. Only the
// requester, the assigned driver, or a manager may cancel.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !s.mayCancel(cmd.Actor, r) {
		return nil, ErrForbidden
	}
	if !CanTransition(r.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, StatusUpdate{
		ID:           r.ID,
		From:         r.Status,
		To:           StatusCancelled,
		CancelReason: cmd.Reason,
		CancelledBy:  cmd.Actor.ID,
		At:           s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	s.record(ctx, audit.EventRideCancelled, cmd.Actor.ID, r.ID, map[string]any{
		"from_status": string(r.Status),
		"reason":      cmd.Reason,
	})
	return s.store.Get(ctx, r.ID)
}

// Rate records the requester's rating for a completed ride, once. The
// value is clamped to the 1..5 scale rather than rejected.
func (s *Service) Rate(ctx context.Context, cmd RateCommand) error {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return err
	}
	if r.RequesterID == "" || r.RequesterID != cmd.Actor.ID {
		return ErrForbidden
	}
	if r.Status != StatusCompleted {
		return ErrInvalidState
	}
	rating := cmd.Rating
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	ok, err := s.store.SetRating(ctx, r.ID, cmd.Actor.ID, rating)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.record(ctx, audit.EventRideRated, cmd.Actor.ID, r.ID, map[string]any{"rating": rating})
	return nil
}

// AppendTrack appends trajectory points reported by the assigned
// driver while the trip is in progress.
func (s *Service) AppendTrack(ctx context.Context, cmd TrackCommand) error {
	if len(cmd.Points) == 0 {
		return ErrBadRequest
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return err
	}
	if r.DriverID == nil || *r.DriverID != cmd.Driver.ID {
		return ErrForbidden
	}
	if r.Status != StatusInProgress {
		return ErrInvalidState
	}
	now := s.now()
	points := make([]TrackPoint, len(cmd.Points))
	for i, p := range cmd.Points {
		points[i] = TrackPoint{Position: p, RecordedAt: now}
	}
	// the store re-checks the status inside its transaction, so a ride
	// completed between the read above and the insert is still refused
	ok, err := s.store.AppendTrack(ctx, r.ID, StatusInProgress, points)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidState
	}
	return nil
}

// Track returns the recorded trajectory, subject to the same detail
// visibility as Get.
func (s *Service) Track(ctx context.Context, id types.ID, viewer types.Identity) ([]TrackPoint, error) {
	if _, err := s.Get(ctx, id, viewer); err != nil {
		return nil, err
	}
	return s.store.Track(ctx, id)
}

// Get fetches a single ride. A ride the viewer may not see is reported
// as not found, indistinguishable from a ride that does not exist.
func (s *Service) Get(ctx context.Context, id types.ID, viewer types.Identity) (*Ride, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canViewDetail(viewer, r) {
		return nil, ErrNotFound
	}
	return r, nil
}

// ListOptions narrows List beyond the viewer's own scope.
type ListOptions struct {
	// Available restricts the result to rides still waiting for a
	// driver. Only meaningful for drivers.
	Available bool
	Status    Status

	// CostCenterID narrows a manager's listing to one cost center. For
	// unit managers it must be one of their memberships.
	CostCenterID types.ID

	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
}

// List returns the rides the viewer is allowed to see. Managers of a
// unit see their cost centers' rides, drivers see rides they are
// involved in (or the open feed when Available is set), passengers see
// their own.
func (s *Service) List(ctx context.Context, viewer types.Identity, opts ListOptions) ([]*Ride, error) {
	f := Filter{
		Status:      opts.Status,
		CreatedFrom: opts.CreatedFrom,
		CreatedTo:   opts.CreatedTo,
		Limit:       opts.Limit,
	}

	switch viewer.Role {
	case types.RoleCentralManager:
		if opts.CostCenterID != "" {
			f.CostCenterIDs = []types.ID{opts.CostCenterID}
		}
	case types.RoleUnitManager:
		ccs, err := s.memberCostCenters(ctx, viewer.ID)
		if err != nil {
			return nil, err
		}
		if opts.CostCenterID != "" {
			member := false
			for _, id := range ccs {
				if id == opts.CostCenterID {
					member = true
					break
				}
			}
			if !member {
				return []*Ride{}, nil
			}
			ccs = []types.ID{opts.CostCenterID}
		}
		if len(ccs) == 0 {
			return []*Ride{}, nil
		}
		f.CostCenterIDs = ccs
	case types.RoleDriver:
		if opts.Available {
			f.Status = StatusRequested
		} else {
			f.InvolvedUser = viewer.ID
		}
	case types.RolePassenger:
		if viewer.ID == "" {
			return []*Ride{}, nil
		}
		f.RequesterID = viewer.ID
	default:
		return []*Ride{}, nil
	}
	return s.store.List(ctx, f)
}

// MonthToDateSpend exposes the spend aggregation for restriction
// checks.
func (s *Service) MonthToDateSpend(ctx context.Context, costCenterID types.ID, at time.Time) (int64, error) {
	return s.store.MonthToDateSpend(ctx, costCenterID, at)
}

func (s *Service) driverTransition(ctx context.Context, id types.ID, driver types.Identity, to Status, eventType string, actuals *Actuals) (*Ride, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.DriverID == nil || *r.DriverID != driver.ID {
		return nil, ErrForbidden
	}
	if !CanTransition(r.Status, to) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, StatusUpdate{
		ID:            r.ID,
		From:          r.Status,
		To:            to,
		RequireDriver: driver.ID,
		Actuals:       actuals,
		At:            s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	details := map[string]any{"from_status": string(r.Status)}
	if actuals != nil {
		details["actual_price_cents"] = actuals.PriceCents
	}
	s.record(ctx, eventType, driver.ID, r.ID, details)
	return s.store.Get(ctx, r.ID)
}

func (s *Service) mayCancel(actor types.Identity, r *Ride) bool {
	if actor.Role.IsManager() {
		return true
	}
	if r.RequesterID != "" && actor.ID == r.RequesterID {
		return true
	}
	if r.DriverID != nil && actor.ID == *r.DriverID {
		return true
	}
	return false
}

func (s *Service) canViewDetail(viewer types.Identity, r *Ride) bool {
	if viewer.Role.IsManager() {
		return true
	}
	if r.RequesterID != "" && viewer.ID == r.RequesterID {
		return true
	}
	if viewer.Role == types.RoleDriver {
		if r.DriverID != nil && *r.DriverID == viewer.ID {
			return true
		}
		// an open ride is visible to any driver so it can be accepted
		return r.Status == StatusRequested
	}
	return false
}

func (s *Service) memberCostCenters(ctx context.Context, userID types.ID) ([]types.ID, error) {
	if s.policy == nil {
		return nil, nil
	}
	return s.policy.MemberCostCenters(ctx, userID)
}

func (s *Service) record(ctx context.Context, eventType string, actorID types.ID, rideID types.ID, details map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Append(ctx, eventType, actorID, "ride", rideID, details)
}

func (s *Service) pushRequested(r *Ride) {
	if s.notifier == nil || s.tokens == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		tokens, err := s.tokens.OnlineDriverTokens(ctx)
		if err != nil {
			s.log.Error("driver token lookup failed", logger.Error(err), logger.String("rideId", string(r.ID)))
			return
		}
		if len(tokens) == 0 {
			return
		}
		s.notifier.NotifyRideRequested(ctx, tokens, r.ID, r.PickupAddress, r.DestinationAddress, types.Money(r.EstimatedPriceCents).BRL())
	}()
}

func (s *Service) pushAccepted(r *Ride, driverName, vehiclePlate string) {
	if s.notifier == nil || s.tokens == nil || r.RequesterID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		tokens, err := s.tokens.PassengerTokens(ctx, r.RequesterID)
		if err != nil {
			s.log.Error("passenger token lookup failed", logger.Error(err), logger.String("rideId", string(r.ID)))
			return
		}
		if len(tokens) == 0 {
			return
		}
		s.notifier.NotifyRideAccepted(ctx, tokens, r.ID, driverName, vehiclePlate)
	}()
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
