// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Role names carried in access tokens.
const (
	RoleSuperAdmin  = "super_admin"
	RoleAdmin       = "admin"
	RoleAccountant  = "accountant"
	RoleSalesperson = "salesperson"
)

// Identity represents the authenticated user's identity.
// Handlers read it instead of poking at gin context keys directly.
type Identity interface {
	UserID() uuid.UUID
	Role() string
	HasRole(roles ...string) bool
	// CompanyID is nil for company-less super admins.
	CompanyID() *uuid.UUID
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	role          string
	companyID     *uuid.UUID
	authenticated bool
}

func (i *identity) UserID() uuid.UUID     { return i.userID }
func (i *identity) Role() string          { return i.role }
func (i *identity) CompanyID() *uuid.UUID { return i.companyID }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

func (i *identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if r == i.role {
			return true
		}
	}
	return false
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	role := c.GetString(ContextRoleKey)

	var companyID *uuid.UUID
	if raw, exists := c.Get(ContextCompanyIDKey); exists {
		if parsed, ok := raw.(uuid.UUID); ok {
			companyID = &parsed
		}
	}

	return &identity{
		userID:        uid,
		role:          role,
		companyID:     companyID,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}

// MustGetCompanyID resolves the tenant for the request. Users bound to a
// company always act within it; a company-less super admin must name the
// company with the companyId query parameter. Aborts with 400 otherwise.
func MustGetCompanyID(c *gin.Context, id Identity) (uuid.UUID, bool) {
	if companyID := id.CompanyID(); companyID != nil {
		return *companyID, true
	}
	if id.HasRole(RoleSuperAdmin) {
		if parsed, err := uuid.Parse(c.Query("companyId")); err == nil {
			return parsed, true
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "company context required"})
	return uuid.Nil, false
}
