// README: Driver availability model.
package driver

import (
	"time"

	"rumo/internal/types"
)

// Availability is a driver's current presence. Position is optional;
// drivers may go online without sharing a location.
type Availability struct {
	DriverID  types.ID
	Online    bool
	Position  *types.Point
	UpdatedAt time.Time
}
