// Package ports defines consumer-driven interfaces for external dependencies.
// These interfaces are defined in the Leads domain based on what it needs,
// rather than what other domains choose to offer.
package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned by UserDirectory when no user matches.
var ErrUserNotFound = errors.New("user not found")

// UserInfo represents the minimal user data the leads domain needs.
type UserInfo struct {
	ID            uuid.UUID
	CompanyID     *uuid.UUID
	Name          string
	Email         string
	Role          string
	IsActive      bool
	MonthlyTarget int
	WeeklyTarget  int
}

// IsActiveSalesperson reports whether the user may own leads.
func (u UserInfo) IsActiveSalesperson() bool {
	return u.IsActive && u.Role == "salesperson"
}

// UserDirectory provides user information needed by the leads domain.
// The identity module implements it through an adapter.
type UserDirectory interface {
	// GetUser returns basic user info or ErrUserNotFound.
	GetUser(ctx context.Context, companyID, userID uuid.UUID) (UserInfo, error)
	// ListActiveSalespeople returns the distribution roster ordered by
	// creation time then id. Callers take one snapshot per operation.
	ListActiveSalespeople(ctx context.Context, companyID uuid.UUID) ([]UserInfo, error)
	// ListAdmins returns active admins of the company, used for digests.
	ListAdmins(ctx context.Context, companyID uuid.UUID) ([]UserInfo, error)
}
