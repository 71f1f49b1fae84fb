// README: Cost center store contract shared by the Postgres and in-memory backends.
package costcenter

import (
	"context"

	"rumo/internal/types"
)

type Store interface {
	Create(ctx context.Context, cc *CostCenter) error
	Get(ctx context.Context, id types.ID) (*CostCenter, error)
	List(ctx context.Context, ids []types.ID) ([]*CostCenter, error)
	Update(ctx context.Context, cc *CostCenter) error
	Delete(ctx context.Context, id types.ID) error

	Areas(ctx context.Context, costCenterID types.ID) ([]AllowedArea, error)
	AddArea(ctx context.Context, a *AllowedArea) error
	RemoveArea(ctx context.Context, costCenterID, areaID types.ID) error

	// MemberCostCenters returns the cost centers the user belongs to.
	MemberCostCenters(ctx context.Context, userID types.ID) ([]types.ID, error)
	AddMember(ctx context.Context, costCenterID, userID types.ID) error
	RemoveMember(ctx context.Context, costCenterID, userID types.ID) error
	Members(ctx context.Context, costCenterID types.ID) ([]types.ID, error)
}
