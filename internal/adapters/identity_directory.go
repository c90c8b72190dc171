// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// wrapping services from providing domains.
package adapters

import (
	"context"

	identityrepo "leadcrm_backend/internal/identity/repository"
	identityservice "leadcrm_backend/internal/identity/service"
	"leadcrm_backend/internal/leads/ports"
	"leadcrm_backend/internal/notification"
	"leadcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// IdentityDirectory adapts the identity service to the user lookups the
// leads and notification domains define. Users of other companies are
// reported as missing.
type IdentityDirectory struct {
	svc *identityservice.Service
}

// NewIdentityDirectory creates a new adapter wrapping the identity service.
func NewIdentityDirectory(svc *identityservice.Service) *IdentityDirectory {
	return &IdentityDirectory{svc: svc}
}

func (d *IdentityDirectory) companyUser(ctx context.Context, companyID, userID uuid.UUID) (identityrepo.User, bool, error) {
	user, err := d.svc.GetUser(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return identityrepo.User{}, false, nil
		}
		return identityrepo.User{}, false, err
	}
	if user.CompanyID == nil || *user.CompanyID != companyID {
		return identityrepo.User{}, false, nil
	}
	return user, true, nil
}

// GetUser returns basic user info or ports.ErrUserNotFound.
func (d *IdentityDirectory) GetUser(ctx context.Context, companyID, userID uuid.UUID) (ports.UserInfo, error) {
	user, ok, err := d.companyUser(ctx, companyID, userID)
	if err != nil {
		return ports.UserInfo{}, err
	}
	if !ok {
		return ports.UserInfo{}, ports.ErrUserNotFound
	}
	return toUserInfo(user), nil
}

// ListActiveSalespeople returns the distribution roster.
func (d *IdentityDirectory) ListActiveSalespeople(ctx context.Context, companyID uuid.UUID) ([]ports.UserInfo, error) {
	users, err := d.svc.ListActiveSalespeople(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return toUserInfos(users), nil
}

// ListAdmins returns the active admins of the company.
func (d *IdentityDirectory) ListAdmins(ctx context.Context, companyID uuid.UUID) ([]ports.UserInfo, error) {
	users, err := d.svc.ListAdmins(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return toUserInfos(users), nil
}

// GetRecipient returns addressing data or notification.ErrRecipientNotFound.
func (d *IdentityDirectory) GetRecipient(ctx context.Context, companyID, userID uuid.UUID) (notification.Recipient, error) {
	user, ok, err := d.companyUser(ctx, companyID, userID)
	if err != nil {
		return notification.Recipient{}, err
	}
	if !ok {
		return notification.Recipient{}, notification.ErrRecipientNotFound
	}
	return toRecipient(user), nil
}

// ListAdminRecipients returns the company admins that receive digests.
func (d *IdentityDirectory) ListAdminRecipients(ctx context.Context, companyID uuid.UUID) ([]notification.Recipient, error) {
	users, err := d.svc.ListAdmins(ctx, companyID)
	if err != nil {
		return nil, err
	}
	recipients := make([]notification.Recipient, 0, len(users))
	for _, u := range users {
		recipients = append(recipients, toRecipient(u))
	}
	return recipients, nil
}

func toUserInfo(u identityrepo.User) ports.UserInfo {
	return ports.UserInfo{
		ID:            u.ID,
		CompanyID:     u.CompanyID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		IsActive:      u.IsActive,
		MonthlyTarget: u.MonthlyTarget,
		WeeklyTarget:  u.WeeklyTarget,
	}
}

func toUserInfos(users []identityrepo.User) []ports.UserInfo {
	out := make([]ports.UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, toUserInfo(u))
	}
	return out
}

func toRecipient(u identityrepo.User) notification.Recipient {
	return notification.Recipient{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		IsActive: u.IsActive,
	}
}

// Compile-time checks.
var (
	_ ports.UserDirectory    = (*IdentityDirectory)(nil)
	_ notification.Directory = (*IdentityDirectory)(nil)
)
