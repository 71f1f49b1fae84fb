// README: Ride store contract shared by the Postgres and in-memory backends.
package ride

import (
	"context"
	"time"

	"rumo/internal/types"
)

// Filter narrows List results. Zero-value fields are ignored.
type Filter struct {
	// CostCenterIDs restricts results to rides booked against one of the
	// given cost centers. nil means no restriction; an empty non-nil
	// slice matches nothing.
	CostCenterIDs []types.ID

	// InvolvedUser matches rides where the user is either the requester
	// or the assigned driver.
	InvolvedUser types.ID

	RequesterID types.ID
	Status      Status

	// CreatedFrom/CreatedTo bound created_at (inclusive).
	CreatedFrom *time.Time
	CreatedTo   *time.Time

	Limit int
}

// DriverAssignment carries the driver fields set when a ride is accepted.
type DriverAssignment struct {
	ID           types.ID
	Name         string
	VehiclePlate string
}

// Actuals carries the trip figures recorded at completion.
type Actuals struct {
	PriceCents  int64
	DistanceKm  float64
	DurationMin int
}

// StatusUpdate is a conditional transition: the store applies it only
// when the ride is still in the From status (and, when RequireDriver is
// set, still assigned to that driver). The boolean result of
// UpdateStatus reports whether the row was won.
type StatusUpdate struct {
	ID   types.ID
	From Status
	To   Status

	// RequireDriver, when non-empty, adds driver_user_id = RequireDriver
	// to the update condition.
	RequireDriver types.ID

	Driver  *DriverAssignment
	Actuals *Actuals

	CancelReason string
	CancelledBy  types.ID

	At time.Time
}

type Store interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	List(ctx context.Context, f Filter) ([]*Ride, error)

	// UpdateStatus applies a compare-and-set transition. It returns
	// false when the condition no longer holds, which callers surface
	// as a conflict.
	UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error)

	// SetRating records the requester's rating once: it only succeeds
	// for a completed ride owned by requesterID that has no rating yet.
	SetRating(ctx context.Context, id, requesterID types.ID, rating int) (bool, error)

	// AppendTrack records trajectory points, but only while the ride
	// still holds the during status. It returns false when the ride is
	// missing or has moved on, so a trip finishing mid-upload cannot
	// gain stray points.
	AppendTrack(ctx context.Context, rideID types.ID, during Status, points []TrackPoint) (bool, error)
	Track(ctx context.Context, rideID types.ID) ([]TrackPoint, error)

	// MonthToDateSpend sums estimated_price_cents over non-cancelled
	// rides of the cost center in the calendar month containing at.
	MonthToDateSpend(ctx context.Context, costCenterID types.ID, at time.Time) (int64, error)
}
