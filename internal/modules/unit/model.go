// README: Organizational unit model.
package unit

import (
	"time"

	"rumo/internal/types"
)

// Unit groups cost centers under one organizational roof.
type Unit struct {
	ID              types.ID
	Name            string
	CostCenterCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
