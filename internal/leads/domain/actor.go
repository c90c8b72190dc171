package domain

import "github.com/google/uuid"

// Role names as stored on users.
const (
	RoleSuperAdmin  = "super_admin"
	RoleAdmin       = "admin"
	RoleAccountant  = "accountant"
	RoleSalesperson = "salesperson"
)

// Actor is the authenticated user performing a lead operation.
type Actor struct {
	UserID    uuid.UUID
	Role      string
	CompanyID uuid.UUID
}

// IsSalesperson reports whether the actor is restricted to their own leads.
func (a Actor) IsSalesperson() bool {
	return a.Role == RoleSalesperson
}

// IsManager reports whether the actor may act on any lead in the company.
func (a Actor) IsManager() bool {
	return a.Role == RoleAdmin || a.Role == RoleAccountant || a.Role == RoleSuperAdmin
}

// CanAccess reports whether the actor may read or mutate a lead owned by owner.
func (a Actor) CanAccess(owner *uuid.UUID) bool {
	if a.IsManager() {
		return true
	}
	if a.IsSalesperson() {
		return owner != nil && *owner == a.UserID
	}
	return false
}
