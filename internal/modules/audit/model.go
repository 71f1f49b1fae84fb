// README: Append-only audit event definitions.
package audit

import (
	"time"

	"rumo/internal/types"
)

// Event types recorded by the core. The log is append-only; events are
// never updated or removed.
const (
	EventRideRequested = "ride_requested"
	EventRideAccepted  = "ride_accepted"
	EventRideArrived   = "ride_driver_arrived"
	EventRideStarted   = "ride_started"
	EventRideCompleted = "ride_completed"
	EventRideCancelled = "ride_cancelled"
	EventRideRated     = "ride_rated"

	EventCostCenterCreated = "cost_center_created"
	EventCostCenterUpdated = "cost_center_updated"
	EventCostCenterDeleted = "cost_center_deleted"

	EventUnitCreated = "unit_created"
	EventUnitUpdated = "unit_updated"
	EventUnitDeleted = "unit_deleted"

	EventReasonCreated = "request_reason_created"
	EventReasonUpdated = "request_reason_updated"
	EventReasonDeleted = "request_reason_deleted"

	EventDriverStatus = "driver_status"
)

type Entry struct {
	ID           int64
	EventType    string
	ActorID      *types.ID
	ResourceType string
	ResourceID   types.ID
	Details      map[string]any
	CreatedAt    time.Time
}
