package adapters

import (
	"context"
	"errors"
	"testing"

	"leadcrm_backend/internal/identity/domain"
	"leadcrm_backend/internal/identity/identitytest"
	identityrepo "leadcrm_backend/internal/identity/repository"
	identityservice "leadcrm_backend/internal/identity/service"
	"leadcrm_backend/internal/leads/ports"
	"leadcrm_backend/internal/notification"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

func seedDirectory(t *testing.T) (*IdentityDirectory, *identitytest.Repository, identityrepo.Company) {
	t.Helper()
	repo := identitytest.NewRepository()
	company, err := repo.CreateCompany(context.Background(), identityrepo.CreateCompanyParams{Name: "Acme", MaxUsers: 10})
	if err != nil {
		t.Fatalf("seed company: %v", err)
	}
	svc := identityservice.New(repo, &identitytest.Bus{}, logger.Nop())
	return NewIdentityDirectory(svc), repo, company
}

func addUser(t *testing.T, repo *identitytest.Repository, companyID uuid.UUID, name, role string) identityrepo.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), identityrepo.CreateUserParams{
		CompanyID: &companyID,
		Name:      name,
		Email:     name + "@acme.test",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestDirectoryRosterKeepsCreationOrder(t *testing.T) {
	dir, repo, company := seedDirectory(t)
	ctx := context.Background()
	first := addUser(t, repo, company.ID, "sam", domain.RoleSalesperson)
	addUser(t, repo, company.ID, "ada", domain.RoleAdmin)
	second := addUser(t, repo, company.ID, "kim", domain.RoleSalesperson)
	off := addUser(t, repo, company.ID, "lou", domain.RoleSalesperson)
	if _, err := repo.Deactivate(ctx, off.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	roster, err := dir.ListActiveSalespeople(ctx, company.ID)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 2 || roster[0].ID != first.ID || roster[1].ID != second.ID {
		t.Fatalf("unexpected roster %+v", roster)
	}
	if !roster[0].IsActiveSalesperson() {
		t.Fatal("roster entries must be active salespeople")
	}
}

func TestDirectoryHidesOtherCompanies(t *testing.T) {
	dir, repo, company := seedDirectory(t)
	ctx := context.Background()
	other, err := repo.CreateCompany(ctx, identityrepo.CreateCompanyParams{Name: "Other", MaxUsers: 10})
	if err != nil {
		t.Fatalf("seed company: %v", err)
	}
	stranger := addUser(t, repo, other.ID, "eve", domain.RoleSalesperson)

	if _, err := dir.GetUser(ctx, company.ID, stranger.ID); !errors.Is(err, ports.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := dir.GetRecipient(ctx, company.ID, uuid.New()); !errors.Is(err, notification.ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}

	info, err := dir.GetUser(ctx, other.ID, stranger.ID)
	if err != nil || info.Name != "eve" {
		t.Fatalf("expected user in own company, got %+v %v", info, err)
	}
}

func TestDirectoryAdminRecipients(t *testing.T) {
	dir, repo, company := seedDirectory(t)
	admin := addUser(t, repo, company.ID, "ada", domain.RoleAdmin)
	addUser(t, repo, company.ID, "sam", domain.RoleSalesperson)

	recipients, err := dir.ListAdminRecipients(context.Background(), company.ID)
	if err != nil {
		t.Fatalf("admins: %v", err)
	}
	if len(recipients) != 1 || recipients[0].ID != admin.ID || recipients[0].Email != "ada@acme.test" {
		t.Fatalf("unexpected recipients %+v", recipients)
	}
}
