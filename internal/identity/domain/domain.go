// Package domain holds the roles and subscription states of the identity
// bounded context.
package domain

const (
	RoleSuperAdmin  = "super_admin"
	RoleAdmin       = "admin"
	RoleAccountant  = "accountant"
	RoleSalesperson = "salesperson"
)

var roles = map[string]struct{}{
	RoleSuperAdmin:  {},
	RoleAdmin:       {},
	RoleAccountant:  {},
	RoleSalesperson: {},
}

// IsValidRole reports whether role is one of the known user roles.
func IsValidRole(role string) bool {
	_, ok := roles[role]
	return ok
}

const (
	SubscriptionTrial   = "trial"
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)
