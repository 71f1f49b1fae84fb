// README: Cost center aggregate, allowed areas, and policy violations.
package costcenter

import (
	"time"

	"rumo/internal/types"
)

type CostCenter struct {
	ID          types.ID
	UnitID      *types.ID
	Name        string
	Description string
	Blocked     bool

	// MonthlyBudgetCents caps the sum of estimated prices of the cost
	// center's non-cancelled rides in a calendar month. nil means no cap.
	MonthlyBudgetCents *int64

	// MaxKmPerRide caps the estimated distance of a single ride.
	MaxKmPerRide *float64

	// Allowed booking window as minutes of day. When EndMin <= StartMin
	// the window crosses midnight.
	TimeWindowStartMin *int
	TimeWindowEndMin   *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	AreaOrigin      = "origin"
	AreaDestination = "destination"
)

// AllowedArea is a circular geofence. When a cost center has at least
// one area of a kind, the corresponding ride endpoint must fall inside
// one of them.
type AllowedArea struct {
	ID           types.ID
	CostCenterID types.ID
	Kind         string
	Name         string
	Center       types.Point
	RadiusKm     float64
}

// Policy violation reasons.
const (
	ReasonBlocked            = "cost_center_blocked"
	ReasonOutsideTimeWindow  = "outside_time_window"
	ReasonMaxKmExceeded      = "max_km_exceeded"
	ReasonBudgetExceeded     = "monthly_budget_exceeded"
	ReasonOriginNotAllowed   = "origin_outside_allowed_area"
	ReasonDestNotAllowed     = "destination_outside_allowed_area"
	ReasonNotMember          = "not_a_member"
	ReasonCostCenterRequired = "cost_center_required"
)

// PolicyError reports which restriction rejected a ride request. It is
// a business rejection, distinct from validation or state errors.
type PolicyError struct {
	Reason  string
	Message string
}

func (e *PolicyError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Reason
}
