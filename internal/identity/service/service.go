// Package service implements company and user administration, including
// the seat policy that caps active users per company.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadcrm_backend/internal/auth/password"
	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/identity/domain"
	"leadcrm_backend/internal/identity/repository"
	"leadcrm_backend/internal/identity/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgUserNotFound    = "user not found"
	msgCompanyNotFound = "company not found"
	msgSeatLimit       = "company has no free seats"
	msgEmailTaken      = "email already in use"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	CreateCompany(ctx context.Context, params repository.CreateCompanyParams) (repository.Company, error)
	GetCompany(ctx context.Context, companyID uuid.UUID) (repository.Company, error)
	ListCompanies(ctx context.Context) ([]repository.Company, error)
	UpdateCompany(ctx context.Context, companyID uuid.UUID, params repository.UpdateCompanyParams) (repository.Company, error)
	CreateUser(ctx context.Context, params repository.CreateUserParams) (repository.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (repository.User, error)
	ListUsers(ctx context.Context, companyID uuid.UUID) ([]repository.User, error)
	ListActiveSalespeople(ctx context.Context, companyID uuid.UUID) ([]repository.User, error)
	ListAdmins(ctx context.Context, companyID uuid.UUID) ([]repository.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, params repository.UpdateUserParams) (repository.User, error)
	Activate(ctx context.Context, companyID, userID uuid.UUID) (repository.User, error)
	Deactivate(ctx context.Context, userID uuid.UUID) (repository.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	SeatUsage(ctx context.Context, companyID uuid.UUID) (active, maxUsers int, err error)
}

// Actor is the authenticated caller with the tenant the request targets.
type Actor struct {
	UserID    uuid.UUID
	Role      string
	CompanyID uuid.UUID
}

func (a Actor) IsSuperAdmin() bool { return a.Role == domain.RoleSuperAdmin }

func (a Actor) canAdminister() bool {
	return a.Role == domain.RoleAdmin || a.Role == domain.RoleSuperAdmin
}

type Service struct {
	repo     Repository
	eventBus events.Bus
	log      *logger.Logger
}

func New(repo Repository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log}
}

// =============================================================================
// Companies
// =============================================================================

func (s *Service) CreateCompany(ctx context.Context, actor Actor, req transport.CreateCompanyRequest) (transport.CompanyResponse, error) {
	if !actor.IsSuperAdmin() {
		return transport.CompanyResponse{}, apperr.Forbidden("only super admins can create companies")
	}
	status := req.SubscriptionStatus
	if status == "" {
		status = domain.SubscriptionTrial
	}

	company, err := s.repo.CreateCompany(ctx, repository.CreateCompanyParams{
		Name:               strings.TrimSpace(req.Name),
		SubscriptionStatus: status,
		MaxUsers:           req.MaxUsers,
		LogoURL:            req.LogoURL,
		PrimaryColor:       req.PrimaryColor,
	})
	if err != nil {
		return transport.CompanyResponse{}, fmt.Errorf("create company: %w", err)
	}
	return toCompanyResponse(company), nil
}

func (s *Service) GetCompany(ctx context.Context, actor Actor, companyID uuid.UUID) (transport.CompanyResponse, error) {
	if !actor.IsSuperAdmin() && actor.CompanyID != companyID {
		return transport.CompanyResponse{}, apperr.NotFound(msgCompanyNotFound)
	}
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return transport.CompanyResponse{}, mapCompanyError(err)
	}
	return toCompanyResponse(company), nil
}

// UpdateCompany lets company admins edit branding. Seats and subscription
// belong to super admins.
func (s *Service) UpdateCompany(ctx context.Context, actor Actor, companyID uuid.UUID, req transport.UpdateCompanyRequest) (transport.CompanyResponse, error) {
	if !actor.IsSuperAdmin() {
		if actor.Role != domain.RoleAdmin || actor.CompanyID != companyID {
			return transport.CompanyResponse{}, apperr.Forbidden("only company admins can update the company")
		}
		if req.MaxUsers != nil || req.SubscriptionStatus != nil {
			return transport.CompanyResponse{}, apperr.Forbidden("seats and subscription are managed by super admins")
		}
	}

	company, err := s.repo.UpdateCompany(ctx, companyID, repository.UpdateCompanyParams{
		Name:               trimmed(req.Name),
		SubscriptionStatus: req.SubscriptionStatus,
		MaxUsers:           req.MaxUsers,
		LogoURL:            req.LogoURL,
		PrimaryColor:       req.PrimaryColor,
	})
	if err != nil {
		return transport.CompanyResponse{}, mapCompanyError(err)
	}
	return toCompanyResponse(company), nil
}

// ListCompanyIDs returns every company, for background jobs.
func (s *Service) ListCompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	companies, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// CheckSeatAvailable reports whether one more active user fits the company.
func (s *Service) CheckSeatAvailable(ctx context.Context, companyID uuid.UUID) (bool, error) {
	active, maxUsers, err := s.repo.SeatUsage(ctx, companyID)
	if err != nil {
		return false, mapCompanyError(err)
	}
	return active < maxUsers, nil
}

// =============================================================================
// Users
// =============================================================================

// CreateUser adds a user to the actor's company. Super admins may create
// other super admins, which belong to no company and take no seat.
func (s *Service) CreateUser(ctx context.Context, actor Actor, req transport.CreateUserRequest) (transport.UserResponse, error) {
	if !actor.canAdminister() {
		return transport.UserResponse{}, apperr.Forbidden("only admins can create users")
	}
	if !domain.IsValidRole(req.Role) {
		return transport.UserResponse{}, apperr.Validation("unknown role")
	}

	var companyID *uuid.UUID
	if req.Role == domain.RoleSuperAdmin {
		if !actor.IsSuperAdmin() {
			return transport.UserResponse{}, apperr.Forbidden("only super admins can create super admins")
		}
	} else {
		id := actor.CompanyID
		if actor.IsSuperAdmin() && req.CompanyID != nil {
			id = *req.CompanyID
		}
		if id == uuid.Nil {
			return transport.UserResponse{}, apperr.Validation("companyId is required")
		}
		companyID = &id
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return transport.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, repository.CreateUserParams{
		CompanyID:     companyID,
		Name:          strings.TrimSpace(req.Name),
		Email:         normalizeEmail(req.Email),
		Phone:         trimmed(req.Phone),
		Role:          req.Role,
		MonthlyTarget: req.MonthlyTarget,
		WeeklyTarget:  req.WeeklyTarget,
		PasswordHash:  hash,
	})
	if err != nil {
		return transport.UserResponse{}, mapUserError(err)
	}

	s.log.Info("user created", "userId", user.ID, "role", user.Role, "actorId", actor.UserID)
	return toUserResponse(user), nil
}

func (s *Service) ListUsers(ctx context.Context, actor Actor) (transport.UserListResponse, error) {
	if !actor.canAdminister() && actor.Role != domain.RoleAccountant {
		return transport.UserListResponse{}, apperr.Forbidden("not allowed to list users")
	}
	users, err := s.repo.ListUsers(ctx, actor.CompanyID)
	if err != nil {
		return transport.UserListResponse{}, fmt.Errorf("list users: %w", err)
	}
	active, maxUsers, err := s.repo.SeatUsage(ctx, actor.CompanyID)
	if err != nil {
		return transport.UserListResponse{}, mapCompanyError(err)
	}

	items := make([]transport.UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}
	return transport.UserListResponse{Items: items, SeatsUsed: active, MaxUsers: maxUsers}, nil
}

func (s *Service) UpdateUser(ctx context.Context, actor Actor, userID uuid.UUID, req transport.UpdateUserRequest) (transport.UserResponse, error) {
	if _, err := s.companyUser(ctx, actor, userID); err != nil {
		return transport.UserResponse{}, err
	}
	if req.Role != nil {
		if !domain.IsValidRole(*req.Role) {
			return transport.UserResponse{}, apperr.Validation("unknown role")
		}
		if *req.Role == domain.RoleSuperAdmin {
			return transport.UserResponse{}, apperr.Forbidden("company users cannot become super admins")
		}
	}

	user, err := s.repo.UpdateUser(ctx, userID, repository.UpdateUserParams{
		Name:          trimmed(req.Name),
		Phone:         trimmed(req.Phone),
		Role:          req.Role,
		MonthlyTarget: req.MonthlyTarget,
		WeeklyTarget:  req.WeeklyTarget,
	})
	if err != nil {
		return transport.UserResponse{}, mapUserError(err)
	}
	return toUserResponse(user), nil
}

// SetActive flips the active flag. Activation takes a seat; deactivation
// leaves the user's leads where they are.
func (s *Service) SetActive(ctx context.Context, actor Actor, userID uuid.UUID, active bool) (transport.UserResponse, error) {
	target, err := s.companyUser(ctx, actor, userID)
	if err != nil {
		return transport.UserResponse{}, err
	}
	if target.IsActive == active {
		return toUserResponse(target), nil
	}

	if active {
		user, err := s.repo.Activate(ctx, *target.CompanyID, userID)
		if err != nil {
			return transport.UserResponse{}, mapUserError(err)
		}
		return toUserResponse(user), nil
	}

	if userID == actor.UserID {
		return transport.UserResponse{}, apperr.Policy("you cannot deactivate yourself")
	}
	user, err := s.repo.Deactivate(ctx, userID)
	if err != nil {
		return transport.UserResponse{}, mapUserError(err)
	}

	s.eventBus.Publish(ctx, events.UserDeactivated{
		BaseEvent: events.NewBaseEvent(),
		CompanyID: *target.CompanyID,
		UserID:    userID,
	})
	return toUserResponse(user), nil
}

// DeleteUser removes a user. Their leads become unassigned.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, userID uuid.UUID) error {
	if userID == actor.UserID {
		return apperr.Policy("you cannot delete yourself")
	}
	target, err := s.companyUser(ctx, actor, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return mapUserError(err)
	}

	if target.IsActive {
		s.eventBus.Publish(ctx, events.UserDeactivated{
			BaseEvent: events.NewBaseEvent(),
			CompanyID: *target.CompanyID,
			UserID:    userID,
		})
	}
	s.log.Info("user deleted", "userId", userID, "actorId", actor.UserID)
	return nil
}

// =============================================================================
// Directory reads used by other modules
// =============================================================================

func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return repository.User{}, mapUserError(err)
	}
	return user, nil
}

func (s *Service) ListActiveSalespeople(ctx context.Context, companyID uuid.UUID) ([]repository.User, error) {
	return s.repo.ListActiveSalespeople(ctx, companyID)
}

func (s *Service) ListAdmins(ctx context.Context, companyID uuid.UUID) ([]repository.User, error) {
	return s.repo.ListAdmins(ctx, companyID)
}

// companyUser loads a user the actor may administer. Users of other
// companies look like missing users.
func (s *Service) companyUser(ctx context.Context, actor Actor, userID uuid.UUID) (repository.User, error) {
	if !actor.canAdminister() {
		return repository.User{}, apperr.Forbidden("only admins can manage users")
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return repository.User{}, mapUserError(err)
	}
	if user.CompanyID == nil || *user.CompanyID != actor.CompanyID {
		return repository.User{}, apperr.NotFound(msgUserNotFound)
	}
	return user, nil
}

func mapUserError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgUserNotFound)
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperr.Conflict(msgEmailTaken)
	case errors.Is(err, repository.ErrSeatLimit):
		return apperr.Policy(msgSeatLimit)
	default:
		return err
	}
}

func mapCompanyError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgCompanyNotFound)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}

func toCompanyResponse(c repository.Company) transport.CompanyResponse {
	return transport.CompanyResponse{
		ID:                 c.ID,
		Name:               c.Name,
		SubscriptionStatus: c.SubscriptionStatus,
		MaxUsers:           c.MaxUsers,
		LogoURL:            c.LogoURL,
		PrimaryColor:       c.PrimaryColor,
		CreatedAt:          c.CreatedAt,
	}
}

func toUserResponse(u repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:            u.ID,
		CompanyID:     u.CompanyID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		IsActive:      u.IsActive,
		MonthlyTarget: u.MonthlyTarget,
		WeeklyTarget:  u.WeeklyTarget,
		CreatedAt:     u.CreatedAt,
	}
}
