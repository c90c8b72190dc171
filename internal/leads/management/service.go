// Package management handles lead CRUD operations.
// This is a vertically sliced feature package containing the status
// lifecycle rules and the audit trail written alongside every mutation.
package management

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/ports"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/metrics"
	"leadcrm_backend/platform/phone"
	"leadcrm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound = "lead not found"
	msgNotYourLead  = "you can only act on leads assigned to you"
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.ActivityStore
}

// Service handles lead management operations (CRUD).
type Service struct {
	repo        Repository
	users       ports.UserDirectory
	eventBus    events.Bus
	log         *logger.Logger
	now         domain.Clock
	strictValue bool
	reports     ports.ReportInvalidator
}

// New creates a new lead management service. With strictValue set an
// unparseable value is rejected instead of stored as zero.
func New(repo Repository, users ports.UserDirectory, eventBus events.Bus, log *logger.Logger, strictValue bool) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		eventBus:    eventBus,
		log:         log,
		now:         domain.SystemClock,
		strictValue: strictValue,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock domain.Clock) *Service {
	s.now = clock
	return s
}

// WithReportInvalidator clears cached reports after every committed write.
func (s *Service) WithReportInvalidator(reports ports.ReportInvalidator) *Service {
	s.reports = reports
	return s
}

func (s *Service) invalidateReports(ctx context.Context, companyID uuid.UUID) {
	if s.reports != nil {
		s.reports.Invalidate(ctx, companyID)
	}
}

// Create creates a new lead. Status is always fresh. Salespeople own what
// they create; admins and accountants may name an active salesperson.
func (s *Service) Create(ctx context.Context, actor domain.Actor, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	name := strings.TrimSpace(req.Name)
	phoneNumber := strings.TrimSpace(req.Phone)
	country := strings.TrimSpace(req.Country)
	if missing := missingFields(name, phoneNumber, country); len(missing) > 0 {
		return transport.LeadResponse{}, apperr.Validation("name, phone and country are required").WithDetails(missing)
	}

	value, err := domain.NormalizeValue(req.Value.Raw, s.strictValue)
	if err != nil {
		return transport.LeadResponse{}, apperr.Validation(err.Error())
	}

	owner, err := s.resolveCreateOwner(ctx, actor, req.AssignedTo)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	params := repository.CreateLeadParams{
		CompanyID:  actor.CompanyID,
		Name:       name,
		Phone:      phone.NormalizeE164(phoneNumber, country),
		Country:    country,
		Email:      optionalString(strings.ToLower(req.Email)),
		Product:    optionalString(req.Product),
		Source:     optionalString(req.Source),
		Status:     domain.StatusFresh,
		Value:      value,
		Notes:      sanitize.Text(req.Notes),
		AssignedTo: owner,
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, fmt.Errorf("create lead: %w", err)
	}
	s.invalidateReports(ctx, lead.CompanyID)

	if owner != nil && *owner != actor.UserID {
		s.eventBus.Publish(ctx, events.LeadAssigned{
			BaseEvent:  events.NewBaseEvent(),
			CompanyID:  lead.CompanyID,
			LeadID:     lead.ID,
			LeadName:   lead.Name,
			AssignedTo: *owner,
			ActorID:    actor.UserID,
			Reason:     "created",
		})
	}

	return ToLeadResponse(lead), nil
}

func (s *Service) resolveCreateOwner(ctx context.Context, actor domain.Actor, requested transport.OptionalUUID) (*uuid.UUID, error) {
	if actor.IsSalesperson() {
		self := actor.UserID
		return &self, nil
	}
	if !actor.IsManager() {
		return nil, apperr.Forbidden("not allowed to create leads")
	}
	if requested.Invalid {
		return nil, apperr.Validation("invalid assignedTo").WithDetails(map[string]string{"assignedTo": "uuid"})
	}
	if !requested.Set || requested.Value == nil {
		return nil, nil
	}

	user, err := s.users.GetUser(ctx, actor.CompanyID, *requested.Value)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load assignee: %w", err)
	}
	if !user.IsActiveSalesperson() {
		return nil, nil
	}
	id := user.ID
	return &id, nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, actor domain.Actor, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.loadAccessible(ctx, actor, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// List returns a page of leads. Salespeople only see their own.
func (s *Service) List(ctx context.Context, actor domain.Actor, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}

	params := repository.ListParams{
		CompanyID: actor.CompanyID,
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Offset:    (req.Page - 1) * req.PageSize,
		Limit:     req.PageSize,
	}
	if req.Status != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return transport.LeadListResponse{}, apperr.Validation("invalid status")
		}
		params.Status = &status
	}
	if actor.IsSalesperson() {
		self := actor.UserID
		params.AssignedTo = &self
	} else if req.AssignedTo != "" {
		assignee, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid assignedTo")
		}
		params.AssignedTo = &assignee
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	return transport.LeadListResponse{
		Items:      ToLeadResponses(leads),
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Update applies a partial patch. A status change and a country change each
// append their own activity in the same transaction as the row update.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	current, err := s.loadAccessible(ctx, actor, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	params, activities, err := s.buildUpdate(actor, current, req)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if params.IsEmpty() {
		return ToLeadResponse(current), nil
	}
	if actor.IsSalesperson() {
		params.OwnedBy = &actor.UserID
	}

	lead, err := s.repo.UpdateWithActivities(ctx, actor.CompanyID, id, params, activities)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		if errors.Is(err, repository.ErrNotOwner) {
			return transport.LeadResponse{}, apperr.Forbidden(msgNotYourLead)
		}
		return transport.LeadResponse{}, fmt.Errorf("update lead: %w", err)
	}
	s.invalidateReports(ctx, lead.CompanyID)

	if lead.Status != current.Status {
		metrics.RecordStatusChange(string(lead.Status))
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			CompanyID: lead.CompanyID,
			LeadID:    lead.ID,
			ActorID:   actor.UserID,
			OldStatus: string(current.Status),
			NewStatus: string(lead.Status),
		})
	}

	return ToLeadResponse(lead), nil
}

func (s *Service) buildUpdate(actor domain.Actor, current repository.Lead, req transport.UpdateLeadRequest) (repository.UpdateLeadParams, []repository.CreateActivityParams, error) {
	var params repository.UpdateLeadParams
	var activities []repository.CreateActivityParams
	now := s.now()

	if req.Status != nil {
		status, ok := domain.ParseStatus(*req.Status)
		if !ok {
			return params, nil, apperr.Validation("invalid status")
		}
		params.Status = &status
		params.ClosedAtSet = true
		// Every update naming a won status stamps closedAt, including
		// closed to closed.
		if status.IsWon() {
			closedAt := now
			params.ClosedAt = &closedAt
		}

		if status != current.Status {
			oldStatus, newStatus := string(current.Status), string(status)
			activities = append(activities, repository.CreateActivityParams{
				LeadID:      current.ID,
				UserID:      &actor.UserID,
				Type:        repository.ActivityStatusChange,
				Description: fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus),
				OldStatus:   &oldStatus,
				NewStatus:   &newStatus,
			})
		}
	}

	if req.Notes != nil {
		params.Notes = sanitize.TextPtr(req.Notes)
	}

	if req.LastCalled.Set {
		lastCalled, err := parseLastCalled(req.LastCalled.Value)
		if err != nil {
			return params, nil, err
		}
		params.LastCalled = lastCalled
		params.LastCalledSet = true
	}

	if req.Value.Set {
		value, err := domain.NormalizeValue(req.Value.Raw, s.strictValue)
		if err != nil {
			return params, nil, apperr.Validation(err.Error())
		}
		params.Value = &value
	}

	if req.Country != nil {
		country := strings.TrimSpace(*req.Country)
		if country != "" {
			params.Country = &country
			if country != current.Country {
				oldCountry := current.Country
				activities = append(activities, repository.CreateActivityParams{
					LeadID:      current.ID,
					UserID:      &actor.UserID,
					Type:        repository.ActivityNote,
					Description: fmt.Sprintf("Country changed from %s to %s", oldCountry, country),
					OldCountry:  &oldCountry,
					NewCountry:  &country,
				})
			}
		}
	}

	if req.Product.Set {
		params.ProductSet = true
		if req.Product.Value != nil {
			params.Product = optionalString(*req.Product.Value)
		}
	}

	return params, activities, nil
}

var lastCalledLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseLastCalled(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	for _, layout := range lastCalledLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation("lastCalled must be a timestamp")
}

// AddActivity appends a free-form audit entry. Status changes go through
// Update so they stay paired with the row change.
func (s *Service) AddActivity(ctx context.Context, actor domain.Actor, leadID uuid.UUID, req transport.AddActivityRequest) (transport.ActivityResponse, error) {
	activityType := repository.ActivityType(strings.TrimSpace(req.Type))
	switch activityType {
	case repository.ActivityCall, repository.ActivityEmail, repository.ActivityMeeting, repository.ActivityNote:
	default:
		return transport.ActivityResponse{}, apperr.Validation("type must be one of call, email, meeting, note")
	}
	description := sanitize.Text(req.Description)
	if description == "" {
		return transport.ActivityResponse{}, apperr.Validation("description is required")
	}

	if _, err := s.loadAccessible(ctx, actor, leadID); err != nil {
		return transport.ActivityResponse{}, err
	}

	activity, err := s.repo.AddActivity(ctx, repository.CreateActivityParams{
		LeadID:      leadID,
		UserID:      &actor.UserID,
		Type:        activityType,
		Description: description,
	})
	if err != nil {
		return transport.ActivityResponse{}, fmt.Errorf("add activity: %w", err)
	}
	return ToActivityResponse(activity), nil
}

// ListActivities returns a lead's audit trail oldest first.
func (s *Service) ListActivities(ctx context.Context, actor domain.Actor, leadID uuid.UUID) ([]transport.ActivityResponse, error) {
	if _, err := s.loadAccessible(ctx, actor, leadID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListActivities(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return ToActivityResponses(items), nil
}

// Delete hard-deletes a lead and its activity log. Admins only.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleSuperAdmin {
		return apperr.Forbidden("only admins can delete leads")
	}
	if err := s.repo.Delete(ctx, actor.CompanyID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgLeadNotFound)
		}
		return err
	}
	s.invalidateReports(ctx, actor.CompanyID)
	s.log.WithContext(ctx).Info("lead deleted", "leadId", id)
	return nil
}

func (s *Service) loadAccessible(ctx context.Context, actor domain.Actor, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, actor.CompanyID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound(msgLeadNotFound)
		}
		return repository.Lead{}, err
	}
	if !actor.CanAccess(lead.AssignedTo) {
		return repository.Lead{}, apperr.Forbidden(msgNotYourLead)
	}
	return lead, nil
}

func missingFields(name, phoneNumber, country string) map[string]string {
	missing := make(map[string]string)
	if name == "" {
		missing["name"] = "required"
	}
	if phoneNumber == "" {
		missing["phone"] = "required"
	}
	if country == "" {
		missing["country"] = "required"
	}
	return missing
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
