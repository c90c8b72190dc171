package service

import (
	"context"
	"testing"

	"leadcrm_backend/internal/auth/password"
	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/identity/domain"
	"leadcrm_backend/internal/identity/identitytest"
	"leadcrm_backend/internal/identity/repository"
	"leadcrm_backend/internal/identity/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo    *identitytest.Repository
	bus     *identitytest.Bus
	svc     *Service
	company repository.Company
	admin   Actor
}

func newFixture(t *testing.T, maxUsers int) fixture {
	t.Helper()
	repo := identitytest.NewRepository()
	bus := &identitytest.Bus{}
	svc := New(repo, bus, logger.Nop())

	company, err := repo.CreateCompany(context.Background(), repository.CreateCompanyParams{Name: "Acme", SubscriptionStatus: domain.SubscriptionActive, MaxUsers: maxUsers})
	require.NoError(t, err)
	admin, err := repo.CreateUser(context.Background(), repository.CreateUserParams{CompanyID: &company.ID, Name: "Ada", Email: "ada@acme.test", Role: domain.RoleAdmin})
	require.NoError(t, err)

	return fixture{
		repo:    repo,
		bus:     bus,
		svc:     svc,
		company: company,
		admin:   Actor{UserID: admin.ID, Role: domain.RoleAdmin, CompanyID: company.ID},
	}
}

func salesRequest(email string) transport.CreateUserRequest {
	return transport.CreateUserRequest{
		Name:          " Sam ",
		Email:         email,
		Role:          domain.RoleSalesperson,
		Password:      "Str0ng!pass",
		MonthlyTarget: 10,
		WeeklyTarget:  3,
	}
}

func TestCreateUserNormalizesAndHashes(t *testing.T) {
	f := newFixture(t, 5)

	user, err := f.svc.CreateUser(context.Background(), f.admin, salesRequest("Sam@Acme.TEST "))
	require.NoError(t, err)

	assert.Equal(t, "Sam", user.Name)
	assert.Equal(t, "sam@acme.test", user.Email)
	require.NotNil(t, user.CompanyID)
	assert.Equal(t, f.company.ID, *user.CompanyID)
	assert.True(t, user.IsActive)

	stored, err := f.repo.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NoError(t, password.Compare(stored.PasswordHash, "Str0ng!pass"))
}

func TestCreateUserEnforcesSeatLimit(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, f.admin, salesRequest("one@acme.test"))
	require.NoError(t, err)

	available, err := f.svc.CheckSeatAvailable(ctx, f.company.ID)
	require.NoError(t, err)
	assert.False(t, available)

	_, err = f.svc.CreateUser(ctx, f.admin, salesRequest("two@acme.test"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPolicy), "expected policy error, got %v", err)
}

func TestCreateUserDuplicateEmailIsConflict(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, f.admin, salesRequest("dup@acme.test"))
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, f.admin, salesRequest("DUP@acme.test"))
	assert.True(t, apperr.Is(err, apperr.KindConflict), "expected conflict, got %v", err)
}

func TestOnlySuperAdminsCreateSuperAdmins(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	req := salesRequest("root@acme.test")
	req.Role = domain.RoleSuperAdmin

	_, err := f.svc.CreateUser(ctx, f.admin, req)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	root := Actor{UserID: uuid.New(), Role: domain.RoleSuperAdmin}
	user, err := f.svc.CreateUser(ctx, root, req)
	require.NoError(t, err)
	assert.Nil(t, user.CompanyID)
}

func TestSalespersonCannotCreateUsers(t *testing.T) {
	f := newFixture(t, 5)
	actor := Actor{UserID: uuid.New(), Role: domain.RoleSalesperson, CompanyID: f.company.ID}

	_, err := f.svc.CreateUser(context.Background(), actor, salesRequest("x@acme.test"))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestDeactivatePublishesAndReactivateChecksSeats(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	sam, err := f.svc.CreateUser(ctx, f.admin, salesRequest("sam@acme.test"))
	require.NoError(t, err)

	off, err := f.svc.SetActive(ctx, f.admin, sam.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	require.Len(t, f.bus.Events, 1)
	deactivated, ok := f.bus.Events[0].(events.UserDeactivated)
	require.True(t, ok)
	assert.Equal(t, sam.ID, deactivated.UserID)
	assert.Equal(t, f.company.ID, deactivated.CompanyID)

	// The freed seat goes to someone else.
	_, err = f.svc.CreateUser(ctx, f.admin, salesRequest("kim@acme.test"))
	require.NoError(t, err)

	_, err = f.svc.SetActive(ctx, f.admin, sam.ID, true)
	assert.True(t, apperr.Is(err, apperr.KindPolicy), "expected seat policy error, got %v", err)
}

func TestSetActiveIsNoopWhenUnchanged(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	sam, err := f.svc.CreateUser(ctx, f.admin, salesRequest("sam@acme.test"))
	require.NoError(t, err)

	_, err = f.svc.SetActive(ctx, f.admin, sam.ID, true)
	require.NoError(t, err)
	assert.Empty(t, f.bus.Events)
}

func TestAdminCannotRemoveThemselves(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.SetActive(ctx, f.admin, f.admin.UserID, false)
	assert.True(t, apperr.Is(err, apperr.KindPolicy))

	err = f.svc.DeleteUser(ctx, f.admin, f.admin.UserID)
	assert.True(t, apperr.Is(err, apperr.KindPolicy))
}

func TestUsersOfOtherCompaniesAreInvisible(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	other, err := f.repo.CreateCompany(ctx, repository.CreateCompanyParams{Name: "Other", MaxUsers: 5})
	require.NoError(t, err)
	stranger, err := f.repo.CreateUser(ctx, repository.CreateUserParams{CompanyID: &other.ID, Name: "Eve", Email: "eve@other.test", Role: domain.RoleSalesperson})
	require.NoError(t, err)

	_, err = f.svc.UpdateUser(ctx, f.admin, stranger.ID, transport.UpdateUserRequest{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = f.svc.DeleteUser(ctx, f.admin, stranger.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.GetCompany(ctx, f.admin, other.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateUserRejectsSuperAdminPromotion(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	sam, err := f.svc.CreateUser(ctx, f.admin, salesRequest("sam@acme.test"))
	require.NoError(t, err)

	role := domain.RoleSuperAdmin
	_, err = f.svc.UpdateUser(ctx, f.admin, sam.ID, transport.UpdateUserRequest{Role: &role})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	target := 25
	updated, err := f.svc.UpdateUser(ctx, f.admin, sam.ID, transport.UpdateUserRequest{MonthlyTarget: &target})
	require.NoError(t, err)
	assert.Equal(t, 25, updated.MonthlyTarget)
	assert.Equal(t, 3, updated.WeeklyTarget)
}

func TestListUsersReportsSeats(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, f.admin, salesRequest("sam@acme.test"))
	require.NoError(t, err)

	list, err := f.svc.ListUsers(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, 2, list.SeatsUsed)
	assert.Equal(t, 4, list.MaxUsers)
}

func TestCompanyAdminsCannotChangeSeats(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	seats := 50

	_, err := f.svc.UpdateCompany(ctx, f.admin, f.company.ID, transport.UpdateCompanyRequest{MaxUsers: &seats})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	name := "Acme BV"
	updated, err := f.svc.UpdateCompany(ctx, f.admin, f.company.ID, transport.UpdateCompanyRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Acme BV", updated.Name)

	root := Actor{UserID: uuid.New(), Role: domain.RoleSuperAdmin}
	updated, err = f.svc.UpdateCompany(ctx, root, f.company.ID, transport.UpdateCompanyRequest{MaxUsers: &seats})
	require.NoError(t, err)
	assert.Equal(t, 50, updated.MaxUsers)
}

func TestCreateCompanyDefaultsToTrial(t *testing.T) {
	f := newFixture(t, 4)
	root := Actor{UserID: uuid.New(), Role: domain.RoleSuperAdmin}

	company, err := f.svc.CreateCompany(context.Background(), root, transport.CreateCompanyRequest{Name: " Beta ", MaxUsers: 3})
	require.NoError(t, err)
	assert.Equal(t, "Beta", company.Name)
	assert.Equal(t, domain.SubscriptionTrial, company.SubscriptionStatus)

	_, err = f.svc.CreateCompany(context.Background(), f.admin, transport.CreateCompanyRequest{Name: "Nope", MaxUsers: 3})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
