// Package identitytest provides in-memory fakes for identity tests.
package identitytest

import (
	"context"
	"sync"
	"time"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/identity/domain"
	"leadcrm_backend/internal/identity/repository"

	"github.com/google/uuid"
)

// Repository is an in-memory identity store with the seat policy of the
// Postgres implementation.
type Repository struct {
	mu        sync.Mutex
	companies map[uuid.UUID]repository.Company
	users     map[uuid.UUID]repository.User
	order     []uuid.UUID
	clock     time.Time
}

func NewRepository() *Repository {
	return &Repository{
		companies: map[uuid.UUID]repository.Company{},
		users:     map[uuid.UUID]repository.User{},
		clock:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *Repository) tick() time.Time {
	r.clock = r.clock.Add(time.Minute)
	return r.clock
}

func (r *Repository) CreateCompany(_ context.Context, p repository.CreateCompanyParams) (repository.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	c := repository.Company{ID: uuid.New(), Name: p.Name, SubscriptionStatus: p.SubscriptionStatus, MaxUsers: p.MaxUsers, LogoURL: p.LogoURL, PrimaryColor: p.PrimaryColor, CreatedAt: now, UpdatedAt: now}
	r.companies[c.ID] = c
	return c, nil
}

func (r *Repository) GetCompany(_ context.Context, id uuid.UUID) (repository.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return repository.Company{}, repository.ErrNotFound
	}
	return c, nil
}

func (r *Repository) ListCompanies(_ context.Context) ([]repository.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Company, 0, len(r.companies))
	for _, c := range r.companies {
		out = append(out, c)
	}
	return out, nil
}

func (r *Repository) UpdateCompany(_ context.Context, id uuid.UUID, p repository.UpdateCompanyParams) (repository.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return repository.Company{}, repository.ErrNotFound
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.SubscriptionStatus != nil {
		c.SubscriptionStatus = *p.SubscriptionStatus
	}
	if p.MaxUsers != nil {
		c.MaxUsers = *p.MaxUsers
	}
	if p.LogoURL != nil {
		c.LogoURL = p.LogoURL
	}
	if p.PrimaryColor != nil {
		c.PrimaryColor = p.PrimaryColor
	}
	r.companies[id] = c
	return c, nil
}

func (r *Repository) activeCount(companyID uuid.UUID) int {
	n := 0
	for _, u := range r.users {
		if u.IsActive && u.CompanyID != nil && *u.CompanyID == companyID {
			n++
		}
	}
	return n
}

func (r *Repository) CreateUser(_ context.Context, p repository.CreateUserParams) (repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == p.Email {
			return repository.User{}, repository.ErrDuplicateEmail
		}
	}
	if p.CompanyID != nil {
		c, ok := r.companies[*p.CompanyID]
		if !ok {
			return repository.User{}, repository.ErrNotFound
		}
		if r.activeCount(c.ID) >= c.MaxUsers {
			return repository.User{}, repository.ErrSeatLimit
		}
	}
	now := r.tick()
	u := repository.User{
		ID: uuid.New(), CompanyID: p.CompanyID, Name: p.Name, Email: p.Email, Phone: p.Phone,
		Role: p.Role, IsActive: true, MonthlyTarget: p.MonthlyTarget, WeeklyTarget: p.WeeklyTarget,
		PasswordHash: p.PasswordHash, CreatedAt: now, UpdatedAt: now,
	}
	r.users[u.ID] = u
	r.order = append(r.order, u.ID)
	return u, nil
}

func (r *Repository) GetUser(_ context.Context, id uuid.UUID) (repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r *Repository) filter(keep func(repository.User) bool) []repository.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.User, 0)
	for _, id := range r.order {
		if u, ok := r.users[id]; ok && keep(u) {
			out = append(out, u)
		}
	}
	return out
}

func inCompany(u repository.User, companyID uuid.UUID) bool {
	return u.CompanyID != nil && *u.CompanyID == companyID
}

func (r *Repository) ListUsers(_ context.Context, companyID uuid.UUID) ([]repository.User, error) {
	return r.filter(func(u repository.User) bool { return inCompany(u, companyID) }), nil
}

func (r *Repository) ListActiveSalespeople(_ context.Context, companyID uuid.UUID) ([]repository.User, error) {
	return r.filter(func(u repository.User) bool {
		return inCompany(u, companyID) && u.IsActive && u.Role == domain.RoleSalesperson
	}), nil
}

func (r *Repository) ListAdmins(_ context.Context, companyID uuid.UUID) ([]repository.User, error) {
	return r.filter(func(u repository.User) bool {
		return inCompany(u, companyID) && u.IsActive && u.Role == domain.RoleAdmin
	}), nil
}

func (r *Repository) UpdateUser(_ context.Context, id uuid.UUID, p repository.UpdateUserParams) (repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = p.Phone
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.MonthlyTarget != nil {
		u.MonthlyTarget = *p.MonthlyTarget
	}
	if p.WeeklyTarget != nil {
		u.WeeklyTarget = *p.WeeklyTarget
	}
	r.users[id] = u
	return u, nil
}

func (r *Repository) Activate(_ context.Context, companyID, id uuid.UUID) (repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[companyID]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	if r.activeCount(companyID) >= c.MaxUsers {
		return repository.User{}, repository.ErrSeatLimit
	}
	u := r.users[id]
	u.IsActive = true
	r.users[id] = u
	return u, nil
}

func (r *Repository) Deactivate(_ context.Context, id uuid.UUID) (repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	u.IsActive = false
	r.users[id] = u
	return u, nil
}

func (r *Repository) DeleteUser(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *Repository) SeatUsage(_ context.Context, companyID uuid.UUID) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[companyID]
	if !ok {
		return 0, 0, repository.ErrNotFound
	}
	return r.activeCount(companyID), c.MaxUsers, nil
}

// Bus records published events.
type Bus struct {
	mu     sync.Mutex
	Events []events.Event
}

func (b *Bus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Events = append(b.Events, event)
}

func (b *Bus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *Bus) Subscribe(string, events.Handler) {}
