package distribution

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
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/metrics"
	"leadcrm_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the data access the distribution service needs.
type Repository interface {
	GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]repository.Lead, error)
	CreateBatch(ctx context.Context, params []repository.CreateLeadParams) ([]repository.Lead, error)
	Reassign(ctx context.Context, companyID uuid.UUID, moves []repository.Reassignment) ([]repository.Lead, error)
}

// Service runs import, redistribution and manual assignment. Each call takes
// exactly one roster snapshot before touching any lead.
type Service struct {
	repo     Repository
	users    ports.UserDirectory
	eventBus events.Bus
	log      *logger.Logger
	now      domain.Clock
	reports  ports.ReportInvalidator
}

func New(repo Repository, users ports.UserDirectory, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, users: users, eventBus: eventBus, log: log, now: domain.SystemClock}
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

// ImportResult summarizes a committed import batch.
type ImportResult struct {
	Leads      []repository.Lead
	Unassigned int
	PerOwner   map[uuid.UUID]int
}

// Import persists drafts round-robin across the active roster. An empty
// roster is tolerated and leaves every lead unassigned.
func (s *Service) Import(ctx context.Context, actor domain.Actor, drafts []Draft) (ImportResult, error) {
	if !actor.IsManager() {
		return ImportResult{}, apperr.Forbidden("only admins and accountants can import leads")
	}
	if len(drafts) == 0 {
		return ImportResult{Leads: []repository.Lead{}, PerOwner: map[uuid.UUID]int{}}, nil
	}

	roster, err := s.rosterIDs(ctx, actor.CompanyID)
	if err != nil {
		return ImportResult{}, err
	}

	now := s.now()
	assignments := Distribute(drafts, roster)
	params := make([]repository.CreateLeadParams, len(assignments))
	owners := make([]*uuid.UUID, len(assignments))
	for i, a := range assignments {
		params[i] = s.toCreateParams(actor.CompanyID, a, now)
		owners[i] = a.Owner
	}

	leads, err := s.repo.CreateBatch(ctx, params)
	if err != nil {
		return ImportResult{}, fmt.Errorf("create imported leads: %w", err)
	}
	s.invalidateReports(ctx, actor.CompanyID)

	result := ImportResult{Leads: leads, PerOwner: Tally(owners)}
	if len(roster) == 0 {
		result.Unassigned = len(leads)
	}

	metrics.RecordDistribution("import", "assigned", len(leads)-result.Unassigned)
	metrics.RecordDistribution("import", "unassigned", result.Unassigned)
	s.log.WithContext(ctx).Distribution("import", actor.CompanyID.String(), len(leads), len(roster))

	s.eventBus.Publish(ctx, events.LeadsImported{
		BaseEvent:  events.NewBaseEvent(),
		CompanyID:  actor.CompanyID,
		ActorID:    actor.UserID,
		Created:    len(leads),
		Unassigned: result.Unassigned,
		PerOwner:   result.PerOwner,
	})

	return result, nil
}

func (s *Service) toCreateParams(companyID uuid.UUID, a Assignment, now time.Time) repository.CreateLeadParams {
	d := a.Draft
	status := d.Status
	if !status.Valid() {
		status = domain.StatusFresh
	}

	p := repository.CreateLeadParams{
		CompanyID:  companyID,
		Name:       strings.TrimSpace(d.Name),
		Phone:      phone.NormalizeE164(d.Phone, d.Country),
		Country:    strings.TrimSpace(d.Country),
		Email:      optionalString(d.Email),
		Product:    optionalString(d.Product),
		Source:     optionalString(d.Source),
		Status:     status,
		Value:      decimal.Zero,
		AssignedTo: a.Owner,
		CreatedAt:  d.Date,
	}
	if status.IsWon() {
		closedAt := now
		if d.Date != nil {
			closedAt = *d.Date
		}
		p.ClosedAt = &closedAt
	}
	return p
}

// Redistribute resets unworked leads to fresh and deals them round-robin
// across the active roster. Leads that are not fresh or rnr, and unknown
// ids, are skipped. An empty roster fails the whole call.
func (s *Service) Redistribute(ctx context.Context, actor domain.Actor, leadIDs []uuid.UUID) ([]repository.Lead, error) {
	if !actor.IsManager() {
		return nil, apperr.Forbidden("only admins and accountants can redistribute leads")
	}

	roster, err := s.users.ListActiveSalespeople(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, apperr.Policy("no active salespeople to redistribute to")
	}
	names := make(map[uuid.UUID]string, len(roster))
	rosterIDs := make([]uuid.UUID, len(roster))
	for i, u := range roster {
		rosterIDs[i] = u.ID
		names[u.ID] = u.Name
	}

	leads, err := s.repo.GetByIDs(ctx, actor.CompanyID, dedupe(leadIDs))
	if err != nil {
		return nil, err
	}

	eligible := make([]repository.Lead, 0, len(leads))
	for _, lead := range leads {
		if lead.Status.IsStaleEligible() {
			eligible = append(eligible, lead)
		}
	}
	if len(eligible) == 0 {
		return []repository.Lead{}, nil
	}

	now := s.now()
	moves := make([]repository.Reassignment, len(eligible))
	for i, lead := range eligible {
		owner := OwnerAt(i, rosterIDs)
		move := repository.Reassignment{
			LeadID:         lead.ID,
			AssignedTo:     owner,
			ResetToFresh:   true,
			DwellStartedAt: now,
		}
		if lead.Status != domain.StatusFresh {
			move.Activities = append(move.Activities, statusChangeActivity(lead.ID, actor.UserID, lead.Status, domain.StatusFresh))
		}
		if !sameOwner(lead.AssignedTo, owner) {
			move.Activities = append(move.Activities, repository.CreateActivityParams{
				LeadID:      lead.ID,
				UserID:      &actor.UserID,
				Type:        repository.ActivityNote,
				Description: fmt.Sprintf("Lead redistributed to %s", names[*owner]),
			})
		}
		moves[i] = move
	}

	updated, err := s.repo.Reassign(ctx, actor.CompanyID, moves)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, fmt.Errorf("redistribute leads: %w", err)
	}
	s.invalidateReports(ctx, actor.CompanyID)

	metrics.RecordDistribution("redistribute", "assigned", len(updated))
	s.log.WithContext(ctx).Distribution("redistribute", actor.CompanyID.String(), len(updated), len(roster))

	for i, lead := range updated {
		prior := eligible[i]
		if prior.Status != domain.StatusFresh {
			metrics.RecordStatusChange(string(domain.StatusFresh))
			s.publishStatusChanged(ctx, actor, lead.ID, prior.Status, domain.StatusFresh)
		}
		if !sameOwner(prior.AssignedTo, lead.AssignedTo) {
			s.publishAssigned(ctx, actor, lead, prior.AssignedTo, "redistributed")
		}
	}

	return updated, nil
}

// Assign gives every named lead to one active salesperson regardless of
// status. Any unknown lead fails the whole call.
func (s *Service) Assign(ctx context.Context, actor domain.Actor, leadIDs []uuid.UUID, targetID uuid.UUID) ([]repository.Lead, error) {
	if !actor.IsManager() {
		return nil, apperr.Forbidden("only admins and accountants can assign leads")
	}
	if targetID == uuid.Nil {
		return nil, apperr.Validation("assignTo is required")
	}
	ids := dedupe(leadIDs)
	if len(ids) == 0 {
		return nil, apperr.Validation("leadIds is required")
	}

	target, err := s.users.GetUser(ctx, actor.CompanyID, targetID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, apperr.NotFound("salesperson not found")
		}
		return nil, fmt.Errorf("load assignee: %w", err)
	}
	if !target.IsActiveSalesperson() {
		return nil, apperr.Policy("leads can only be assigned to an active salesperson")
	}

	leads, err := s.repo.GetByIDs(ctx, actor.CompanyID, ids)
	if err != nil {
		return nil, err
	}
	if len(leads) != len(ids) {
		return nil, apperr.NotFound("lead not found")
	}

	moves := make([]repository.Reassignment, len(leads))
	for i, lead := range leads {
		verb := "assigned"
		if lead.AssignedTo != nil && *lead.AssignedTo != targetID {
			verb = "reassigned"
		}
		moves[i] = repository.Reassignment{
			LeadID:     lead.ID,
			AssignedTo: &targetID,
			Activities: []repository.CreateActivityParams{{
				LeadID:      lead.ID,
				UserID:      &actor.UserID,
				Type:        repository.ActivityNote,
				Description: fmt.Sprintf("Lead %s to %s", verb, target.Name),
			}},
		}
	}

	updated, err := s.repo.Reassign(ctx, actor.CompanyID, moves)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, fmt.Errorf("assign leads: %w", err)
	}
	s.invalidateReports(ctx, actor.CompanyID)

	metrics.RecordDistribution("assign", "assigned", len(updated))
	s.log.WithContext(ctx).Distribution("assign", actor.CompanyID.String(), len(updated), 1)

	for i, lead := range updated {
		if !sameOwner(leads[i].AssignedTo, lead.AssignedTo) {
			s.publishAssigned(ctx, actor, lead, leads[i].AssignedTo, "assigned")
		}
	}

	return updated, nil
}

func (s *Service) rosterIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	roster, err := s.users.ListActiveSalespeople(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	ids := make([]uuid.UUID, len(roster))
	for i, u := range roster {
		ids[i] = u.ID
	}
	return ids, nil
}

func (s *Service) publishAssigned(ctx context.Context, actor domain.Actor, lead repository.Lead, previous *uuid.UUID, reason string) {
	if lead.AssignedTo == nil {
		return
	}
	s.eventBus.Publish(ctx, events.LeadAssigned{
		BaseEvent:       events.NewBaseEvent(),
		CompanyID:       lead.CompanyID,
		LeadID:          lead.ID,
		LeadName:        lead.Name,
		AssignedTo:      *lead.AssignedTo,
		PreviousOwnerID: previous,
		ActorID:         actor.UserID,
		Reason:          reason,
	})
}

func (s *Service) publishStatusChanged(ctx context.Context, actor domain.Actor, leadID uuid.UUID, from, to domain.Status) {
	s.eventBus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		CompanyID: actor.CompanyID,
		LeadID:    leadID,
		ActorID:   actor.UserID,
		OldStatus: string(from),
		NewStatus: string(to),
	})
}

func statusChangeActivity(leadID, userID uuid.UUID, from, to domain.Status) repository.CreateActivityParams {
	oldStatus, newStatus := string(from), string(to)
	return repository.CreateActivityParams{
		LeadID:      leadID,
		UserID:      &userID,
		Type:        repository.ActivityStatusChange,
		Description: fmt.Sprintf("Status changed from %s to %s", from, to),
		OldStatus:   &oldStatus,
		NewStatus:   &newStatus,
	}
}

func sameOwner(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
