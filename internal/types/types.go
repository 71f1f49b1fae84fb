// README: Shared value types used across modules.
package types

// ID is an opaque record identifier.
type ID string

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Role is the closed set of actor roles known to the system.
type Role string

const (
	RoleCentralManager Role = "central_manager"
	RoleUnitManager    Role = "unit_manager"
	RoleDriver         Role = "driver"
	RolePassenger      Role = "passenger"
)

// IsManager reports whether the role is a back-office manager role.
func (r Role) IsManager() bool {
	return r == RoleCentralManager || r == RoleUnitManager
}

// Identity is a pre-validated authenticated actor. A zero ID means the
// request is anonymous.
type Identity struct {
	ID   ID
	Role Role
}

// Anonymous reports whether the identity carries no authenticated user.
func (i Identity) Anonymous() bool {
	return i.ID == ""
}
