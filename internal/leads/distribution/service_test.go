package distribution

import (
	"context"
	"testing"
	"time"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/leadstest"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc       *Service
	repo      *leadstest.Repository
	users     *leadstest.Directory
	bus       *leadstest.Bus
	companyID uuid.UUID
	admin     domain.Actor
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)
	repo := leadstest.NewRepository()
	repo.Now = func() time.Time { return now }
	users := leadstest.NewDirectory()
	bus := &leadstest.Bus{}
	companyID := uuid.New()

	svc := New(repo, users, bus, logger.Nop()).WithClock(func() time.Time { return now })
	return &fixture{
		svc:       svc,
		repo:      repo,
		users:     users,
		bus:       bus,
		companyID: companyID,
		admin:     domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin, CompanyID: companyID},
		now:       now,
	}
}

func (f *fixture) seed(status domain.Status, owner *uuid.UUID) repository.Lead {
	lead := repository.Lead{
		CompanyID:  f.companyID,
		Name:       "Lead",
		Phone:      "123",
		Country:    "India",
		Status:     status,
		AssignedTo: owner,
		CreatedAt:  f.now.Add(-10 * 24 * time.Hour),
	}
	if status.IsWon() {
		closed := f.now.Add(-time.Hour)
		lead.ClosedAt = &closed
	}
	return f.repo.Seed(lead)
}

func TestImportDistributesRoundRobinWithOneSnapshot(t *testing.T) {
	f := newFixture(t)
	a := f.users.Add(leadstest.Salesperson(f.companyID, "Asha"))
	b := f.users.Add(leadstest.Salesperson(f.companyID, "Bilal"))

	drafts := make([]Draft, 5)
	for i := range drafts {
		drafts[i] = Draft{Name: "Imported", Phone: "123", Country: "India", Status: domain.StatusFresh}
	}

	result, err := f.svc.Import(context.Background(), f.admin, drafts)
	require.NoError(t, err)
	require.Len(t, result.Leads, 5)
	assert.Equal(t, 1, f.users.Calls)
	assert.Equal(t, 0, result.Unassigned)
	assert.Equal(t, 3, result.PerOwner[a.ID])
	assert.Equal(t, 2, result.PerOwner[b.ID])

	for i, lead := range result.Leads {
		want := a.ID
		if i%2 == 1 {
			want = b.ID
		}
		require.NotNil(t, lead.AssignedTo)
		assert.Equal(t, want, *lead.AssignedTo)
	}
	assert.Len(t, f.bus.Named(events.LeadsImported{}.EventName()), 1)
}

func TestImportWithoutSalespeopleLeavesLeadsUnassigned(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Import(context.Background(), f.admin, []Draft{
		{Name: "One", Phone: "1", Country: "India"},
		{Name: "Two", Phone: "2", Country: "India"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Unassigned)
	for _, lead := range result.Leads {
		assert.Nil(t, lead.AssignedTo)
		assert.Equal(t, domain.StatusFresh, lead.Status)
	}
}

func TestImportKeepsClosedStatusWithClosedAt(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC)

	result, err := f.svc.Import(context.Background(), f.admin, []Draft{
		{Name: "Won", Phone: "1", Country: "India", Status: domain.StatusClosed, Date: &date},
	})
	require.NoError(t, err)
	lead := result.Leads[0]
	assert.Equal(t, domain.StatusClosed, lead.Status)
	require.NotNil(t, lead.ClosedAt)
	assert.True(t, lead.ClosedAt.Equal(date))
	assert.True(t, lead.CreatedAt.Equal(date))
}

func TestImportRequiresManager(t *testing.T) {
	f := newFixture(t)
	sales := domain.Actor{UserID: uuid.New(), Role: domain.RoleSalesperson, CompanyID: f.companyID}

	_, err := f.svc.Import(context.Background(), sales, []Draft{{Name: "x", Phone: "1", Country: "India"}})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestRedistributeFiltersAndResetsToFresh(t *testing.T) {
	f := newFixture(t)
	old := f.users.Add(leadstest.Salesperson(f.companyID, "Old"))
	f.users.SetActive(old.ID, false)
	a := f.users.Add(leadstest.Salesperson(f.companyID, "Asha"))
	b := f.users.Add(leadstest.Salesperson(f.companyID, "Bilal"))

	rnr := f.seed(domain.StatusRNR, &old.ID)
	fresh := f.seed(domain.StatusFresh, &old.ID)
	closed := f.seed(domain.StatusClosed, &old.ID)
	followUp := f.seed(domain.StatusFollowUp, &old.ID)

	updated, err := f.svc.Redistribute(context.Background(), f.admin,
		[]uuid.UUID{rnr.ID, closed.ID, fresh.ID, followUp.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, updated, 2)

	assert.Equal(t, rnr.ID, updated[0].ID)
	assert.Equal(t, a.ID, *updated[0].AssignedTo)
	assert.Equal(t, fresh.ID, updated[1].ID)
	assert.Equal(t, b.ID, *updated[1].AssignedTo)

	for _, lead := range updated {
		assert.Equal(t, domain.StatusFresh, lead.Status)
		assert.True(t, lead.DwellStartedAt.Equal(f.now))
	}

	untouched, _ := f.repo.Lead(closed.ID)
	assert.Equal(t, old.ID, *untouched.AssignedTo)
	assert.Equal(t, domain.StatusClosed, untouched.Status)

	acts, _ := f.repo.ListActivities(context.Background(), rnr.ID)
	require.Len(t, acts, 2)
	assert.Equal(t, repository.ActivityStatusChange, acts[0].Type)
	assert.Equal(t, "rnr", *acts[0].OldStatus)
	assert.Equal(t, "fresh", *acts[0].NewStatus)
	assert.Equal(t, repository.ActivityNote, acts[1].Type)
}

func TestRedistributeFailsWithoutSalespeople(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	lead := f.seed(domain.StatusRNR, &owner)

	_, err := f.svc.Redistribute(context.Background(), f.admin, []uuid.UUID{lead.ID})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPolicy))

	stored, _ := f.repo.Lead(lead.ID)
	assert.Equal(t, domain.StatusRNR, stored.Status)
	assert.Equal(t, owner, *stored.AssignedTo)
	assert.Empty(t, f.repo.Activities())
}

func TestAssignRecordsAssignedAndReassigned(t *testing.T) {
	f := newFixture(t)
	prev := f.users.Add(leadstest.Salesperson(f.companyID, "Prev"))
	target := f.users.Add(leadstest.Salesperson(f.companyID, "Target"))

	unowned := f.seed(domain.StatusFresh, nil)
	owned := f.seed(domain.StatusClosed, &prev.ID)
	same := f.seed(domain.StatusDead, &target.ID)

	updated, err := f.svc.Assign(context.Background(), f.admin, []uuid.UUID{unowned.ID, owned.ID, same.ID}, target.ID)
	require.NoError(t, err)
	require.Len(t, updated, 3)
	for _, lead := range updated {
		assert.Equal(t, target.ID, *lead.AssignedTo)
	}
	assert.Equal(t, domain.StatusClosed, updated[1].Status)

	acts := f.repo.Activities()
	require.Len(t, acts, 3)
	assert.Equal(t, "Lead assigned to Target", acts[0].Description)
	assert.Equal(t, "Lead reassigned to Target", acts[1].Description)
	assert.Equal(t, "Lead assigned to Target", acts[2].Description)
	assert.Equal(t, f.admin.UserID, *acts[0].UserID)

	assert.Len(t, f.bus.Named(events.LeadAssigned{}.EventName()), 2)
}

func TestAssignRejectsInvalidTargets(t *testing.T) {
	f := newFixture(t)
	inactive := f.users.Add(leadstest.Salesperson(f.companyID, "Inactive"))
	f.users.SetActive(inactive.ID, false)
	accountant := leadstest.Salesperson(f.companyID, "Acc")
	accountant.Role = domain.RoleAccountant
	nonSales := f.users.Add(accountant)
	lead := f.seed(domain.StatusFresh, nil)

	_, err := f.svc.Assign(context.Background(), f.admin, []uuid.UUID{lead.ID}, uuid.Nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Assign(context.Background(), f.admin, []uuid.UUID{lead.ID}, inactive.ID)
	assert.True(t, apperr.Is(err, apperr.KindPolicy))

	_, err = f.svc.Assign(context.Background(), f.admin, []uuid.UUID{lead.ID}, nonSales.ID)
	assert.True(t, apperr.Is(err, apperr.KindPolicy))

	_, err = f.svc.Assign(context.Background(), f.admin, []uuid.UUID{lead.ID}, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	stored, _ := f.repo.Lead(lead.ID)
	assert.Nil(t, stored.AssignedTo)
	assert.Empty(t, f.repo.Activities())
}

func TestAssignWithUnknownLeadHasNoPartialEffect(t *testing.T) {
	f := newFixture(t)
	target := f.users.Add(leadstest.Salesperson(f.companyID, "Target"))
	lead := f.seed(domain.StatusFresh, nil)

	_, err := f.svc.Assign(context.Background(), f.admin, []uuid.UUID{lead.ID, uuid.New()}, target.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	stored, _ := f.repo.Lead(lead.ID)
	assert.Nil(t, stored.AssignedTo)
	assert.Empty(t, f.repo.Activities())
}
