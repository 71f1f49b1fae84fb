// README: Ride aggregate and status definitions.
package ride

import (
	"time"

	"rumo/internal/types"
)

type Status string

const (
	StatusRequested     Status = "requested"
	StatusAccepted      Status = "accepted"
	StatusDriverArrived Status = "driver_arrived"
	StatusInProgress    Status = "in_progress"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

type Ride struct {
	ID           types.ID
	RequesterID  types.ID // empty for anonymous requests
	CostCenterID *types.ID

	PickupAddress      string
	Pickup             *types.Point
	DestinationAddress string
	Destination        *types.Point

	EstimatedDistanceKm  float64
	EstimatedDurationMin int
	EstimatedPriceCents  int64

	Status Status

	DriverID     *types.ID
	DriverName   *string
	VehiclePlate *string

	ActualPriceCents  *int64
	ActualDistanceKm  *float64
	ActualDurationMin *int

	CancelReason *string
	CancelledBy  *types.ID

	Rating *int

	CreatedAt   time.Time
	AcceptedAt  *time.Time
	ArrivedAt   *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// TrackPoint is one recorded position of the ride trajectory. The
// trajectory is append-only.
type TrackPoint struct {
	Seq        int
	Position   types.Point
	RecordedAt time.Time
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AllowedTransitions represents the ride state flow as code. Cancellation
// is the only transition reachable from more than one state; the happy
// path never skips a state.
var AllowedTransitions = map[Status][]Status{
	StatusRequested:     {StatusAccepted, StatusCancelled},
	StatusAccepted:      {StatusDriverArrived, StatusCancelled},
	StatusDriverArrived: {StatusInProgress, StatusCancelled},
	StatusInProgress:    {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
