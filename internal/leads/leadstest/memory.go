// Package leadstest provides in-memory implementations of the leads
// repository and user directory for tests.
package leadstest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/ports"
	"leadcrm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Repository is a map-backed repository.LeadsRepository. Multi-row writes
// validate every row before applying any of them, mirroring a transaction.
type Repository struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]repository.Lead
	order      []uuid.UUID
	activities []repository.Activity

	// Now stamps created_at and updated_at. Defaults to time.Now.
	Now func() time.Time
	// FailWrites makes every write return this error without mutating.
	FailWrites error
	// BeforeUpdate runs at the start of UpdateWithActivities, outside the
	// lock, so a test can change the row between a read and a write.
	BeforeUpdate func(id uuid.UUID)
}

func NewRepository() *Repository {
	return &Repository{leads: make(map[uuid.UUID]repository.Lead), Now: time.Now}
}

var _ repository.LeadsRepository = (*Repository)(nil)

// Seed stores a lead as is, filling in id and timestamps when missing.
func (r *Repository) Seed(lead repository.Lead) repository.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = r.Now()
	}
	if lead.DwellStartedAt.IsZero() {
		lead.DwellStartedAt = lead.CreatedAt
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = lead.CreatedAt
	}
	if lead.Status == "" {
		lead.Status = domain.StatusFresh
	}
	r.store(lead)
	return lead
}

// Lead returns the stored row.
func (r *Repository) Lead(id uuid.UUID) (repository.Lead, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	return lead, ok
}

// Activities returns every stored activity in insertion order.
func (r *Repository) Activities() []repository.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repository.Activity(nil), r.activities...)
}

func (r *Repository) store(lead repository.Lead) {
	if _, exists := r.leads[lead.ID]; !exists {
		r.order = append(r.order, lead.ID)
	}
	r.leads[lead.ID] = lead
}

func (r *Repository) insert(params repository.CreateLeadParams) repository.Lead {
	now := r.Now()
	created := now
	if params.CreatedAt != nil {
		created = *params.CreatedAt
	}
	lead := repository.Lead{
		ID:             uuid.New(),
		CompanyID:      params.CompanyID,
		Name:           params.Name,
		Email:          params.Email,
		Phone:          params.Phone,
		Country:        params.Country,
		Product:        params.Product,
		Source:         params.Source,
		Status:         params.Status,
		Value:          params.Value,
		Notes:          params.Notes,
		ClosedAt:       params.ClosedAt,
		AssignedTo:     params.AssignedTo,
		DwellStartedAt: created,
		CreatedAt:      created,
		UpdatedAt:      now,
	}
	r.store(lead)
	return lead
}

func (r *Repository) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return repository.Lead{}, r.FailWrites
	}
	return r.insert(params), nil
}

func (r *Repository) CreateBatch(_ context.Context, params []repository.CreateLeadParams) ([]repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return nil, r.FailWrites
	}
	out := make([]repository.Lead, 0, len(params))
	for _, p := range params {
		out = append(out, r.insert(p))
	}
	return out, nil
}

func (r *Repository) GetByID(_ context.Context, companyID, id uuid.UUID) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok || lead.CompanyID != companyID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (r *Repository) GetByIDs(_ context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Lead, 0, len(ids))
	for _, id := range ids {
		if lead, ok := r.leads[id]; ok && lead.CompanyID == companyID {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (r *Repository) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(params.Search))
	matched := make([]repository.Lead, 0)
	for _, id := range r.order {
		lead := r.leads[id]
		if lead.CompanyID != params.CompanyID {
			continue
		}
		if params.AssignedTo != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *params.AssignedTo) {
			continue
		}
		if params.Status != nil && lead.Status != *params.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(lead.Name+" "+lead.Phone+" "+lead.Country), search) {
			continue
		}
		matched = append(matched, lead)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if params.SortOrder == "asc" {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(params.Offset, total)
	end := total
	if params.Limit > 0 {
		end = min(start+params.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *Repository) UpdateWithActivities(_ context.Context, companyID, id uuid.UUID, params repository.UpdateLeadParams, activities []repository.CreateActivityParams) (repository.Lead, error) {
	if r.BeforeUpdate != nil {
		r.BeforeUpdate(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return repository.Lead{}, r.FailWrites
	}

	lead, ok := r.leads[id]
	if !ok || lead.CompanyID != companyID {
		return repository.Lead{}, repository.ErrNotFound
	}
	if params.OwnedBy != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *params.OwnedBy) {
		return repository.Lead{}, repository.ErrNotOwner
	}

	if params.Status != nil {
		lead.Status = *params.Status
	}
	if params.ClosedAtSet {
		lead.ClosedAt = params.ClosedAt
	}
	if params.Notes != nil {
		lead.Notes = *params.Notes
	}
	if params.LastCalledSet {
		lead.LastCalled = params.LastCalled
	}
	if params.Value != nil {
		lead.Value = *params.Value
	}
	if params.Country != nil {
		lead.Country = *params.Country
	}
	if params.ProductSet {
		lead.Product = params.Product
	}
	lead.UpdatedAt = r.Now()
	r.store(lead)

	for _, a := range activities {
		r.appendActivity(a)
	}
	return lead, nil
}

func (r *Repository) Reassign(_ context.Context, companyID uuid.UUID, moves []repository.Reassignment) ([]repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return nil, r.FailWrites
	}

	for _, m := range moves {
		lead, ok := r.leads[m.LeadID]
		if !ok || lead.CompanyID != companyID {
			return nil, repository.ErrNotFound
		}
	}

	out := make([]repository.Lead, 0, len(moves))
	for _, m := range moves {
		lead := r.leads[m.LeadID]
		lead.AssignedTo = m.AssignedTo
		if m.ResetToFresh {
			lead.Status = domain.StatusFresh
			lead.ClosedAt = nil
			lead.DwellStartedAt = m.DwellStartedAt
		}
		lead.UpdatedAt = r.Now()
		r.store(lead)
		for _, a := range m.Activities {
			r.appendActivity(a)
		}
		out = append(out, lead)
	}
	return out, nil
}

func (r *Repository) Delete(_ context.Context, companyID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return r.FailWrites
	}

	lead, ok := r.leads[id]
	if !ok || lead.CompanyID != companyID {
		return repository.ErrNotFound
	}
	delete(r.leads, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	kept := r.activities[:0]
	for _, a := range r.activities {
		if a.LeadID != id {
			kept = append(kept, a)
		}
	}
	r.activities = kept
	return nil
}

func (r *Repository) appendActivity(params repository.CreateActivityParams) repository.Activity {
	a := repository.Activity{
		ID:          uuid.New(),
		LeadID:      params.LeadID,
		UserID:      params.UserID,
		Type:        params.Type,
		Description: params.Description,
		OldStatus:   params.OldStatus,
		NewStatus:   params.NewStatus,
		OldCountry:  params.OldCountry,
		NewCountry:  params.NewCountry,
		CreatedAt:   r.Now(),
	}
	r.activities = append(r.activities, a)
	return a
}

func (r *Repository) AddActivity(_ context.Context, params repository.CreateActivityParams) (repository.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return repository.Activity{}, r.FailWrites
	}
	return r.appendActivity(params), nil
}

func (r *Repository) ListActivities(_ context.Context, leadID uuid.UUID) ([]repository.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Activity, 0)
	for _, a := range r.activities {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *Repository) ListActivitiesByUser(_ context.Context, companyID, userID uuid.UUID, limit int) ([]repository.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Activity, 0)
	for i := len(r.activities) - 1; i >= 0 && len(out) < limit; i-- {
		a := r.activities[i]
		lead, ok := r.leads[a.LeadID]
		if !ok || lead.CompanyID != companyID || a.UserID == nil || *a.UserID != userID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Repository) ListForStats(_ context.Context, filter repository.StatsFilter) ([]repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, id := range r.order {
		lead := r.leads[id]
		if lead.CompanyID != filter.CompanyID {
			continue
		}
		if filter.AssignedTo != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Since != nil {
			createdIn := !lead.CreatedAt.Before(*filter.Since)
			closedIn := lead.ClosedAt != nil && !lead.ClosedAt.Before(*filter.Since)
			if !createdIn && !closedIn {
				continue
			}
		}
		out = append(out, lead)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Repository) CountByStatus(_ context.Context, companyID uuid.UUID, assignedTo *uuid.UUID) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, lead := range r.leads {
		if lead.CompanyID != companyID {
			continue
		}
		if assignedTo != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *assignedTo) {
			continue
		}
		counts[string(lead.Status)]++
	}
	return counts, nil
}

func (r *Repository) ListStale(_ context.Context, companyID uuid.UUID, cutoff time.Time) ([]repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, id := range r.order {
		lead := r.leads[id]
		if lead.CompanyID != companyID || !lead.Status.IsStaleEligible() || lead.DwellStartedAt.After(cutoff) {
			continue
		}
		out = append(out, lead)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DwellStartedAt.Before(out[j].DwellStartedAt) })
	return out, nil
}

func (r *Repository) ListRecentCalls(_ context.Context, companyID, userID uuid.UUID, since time.Time, limit int) ([]repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, lead := range r.leads {
		if lead.CompanyID != companyID || lead.AssignedTo == nil || *lead.AssignedTo != userID {
			continue
		}
		if lead.LastCalled == nil || lead.LastCalled.Before(since) {
			continue
		}
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastCalled.After(*out[j].LastCalled) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Directory is an in-memory ports.UserDirectory. Users are returned in the
// order they were added.
type Directory struct {
	mu    sync.Mutex
	users []ports.UserInfo
	// Calls counts ListActiveSalespeople invocations.
	Calls int
}

func NewDirectory(users ...ports.UserInfo) *Directory {
	return &Directory{users: users}
}

// Add appends a user and returns it.
func (d *Directory) Add(u ports.UserInfo) ports.UserInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	d.users = append(d.users, u)
	return u
}

// SetActive flips a user's active flag.
func (d *Directory) SetActive(id uuid.UUID, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.users {
		if d.users[i].ID == id {
			d.users[i].IsActive = active
		}
	}
}

func (d *Directory) GetUser(_ context.Context, companyID, userID uuid.UUID) (ports.UserInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ID == userID && u.CompanyID != nil && *u.CompanyID == companyID {
			return u, nil
		}
	}
	return ports.UserInfo{}, ports.ErrUserNotFound
}

func (d *Directory) ListActiveSalespeople(_ context.Context, companyID uuid.UUID) ([]ports.UserInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	out := make([]ports.UserInfo, 0)
	for _, u := range d.users {
		if u.IsActiveSalesperson() && u.CompanyID != nil && *u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *Directory) ListAdmins(_ context.Context, companyID uuid.UUID) ([]ports.UserInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ports.UserInfo, 0)
	for _, u := range d.users {
		if u.IsActive && u.Role == domain.RoleAdmin && u.CompanyID != nil && *u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	return out, nil
}

// Salesperson builds an active salesperson in the given company.
func Salesperson(companyID uuid.UUID, name string) ports.UserInfo {
	return ports.UserInfo{
		ID:        uuid.New(),
		CompanyID: &companyID,
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		Role:      domain.RoleSalesperson,
		IsActive:  true,
	}
}
