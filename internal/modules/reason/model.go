// README: Ride request reason model.
package reason

import (
	"time"

	"rumo/internal/types"
)

// Reason is a catalog entry users pick from when requesting a ride.
type Reason struct {
	ID        types.ID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
