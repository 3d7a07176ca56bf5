package entity

// Role of an acting user, established by the upstream auth layer.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Actor identifies the authenticated caller of a service operation.
// Authentication itself happens upstream; services only check ownership
// and role.
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin returns true for admin actors
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanActOn returns true if the actor owns the resource or is an admin
func (a Actor) CanActOn(ownerID string) bool {
	return a.IsAdmin() || a.UserID == ownerID
}
