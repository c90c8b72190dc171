package service

import (
	"context"
	"testing"
	"time"

	"leadcrm_backend/internal/auth/password"
	"leadcrm_backend/internal/auth/repository"
	"leadcrm_backend/internal/auth/token"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	users map[uuid.UUID]repository.User
}

func (r *fakeRepo) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (r *fakeRepo) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := r.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	r.users[id] = u
	return nil
}

func newService(t *testing.T, active bool) (*Service, *fakeRepo, repository.User) {
	t.Helper()
	hash, err := password.Hash("Str0ng!pass")
	require.NoError(t, err)
	companyID := uuid.New()
	user := repository.User{
		ID:           uuid.New(),
		CompanyID:    &companyID,
		Name:         "Sam",
		Email:        "sam@acme.test",
		Role:         "salesperson",
		IsActive:     active,
		PasswordHash: hash,
	}
	repo := &fakeRepo{users: map[uuid.UUID]repository.User{user.ID: user}}
	return New(repo, token.NewIssuer("secret", time.Hour), logger.Nop()), repo, user
}

func TestSignInIssuesToken(t *testing.T) {
	svc, _, user := newService(t, true)

	session, err := svc.SignIn(context.Background(), " SAM@acme.test ", "Str0ng!pass")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, user.ID, session.User.ID)
	assert.True(t, session.ExpiresAt.After(time.Now()))
}

func TestSignInFailures(t *testing.T) {
	svc, _, _ := newService(t, true)
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "nobody@acme.test", "Str0ng!pass")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.SignIn(ctx, "sam@acme.test", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestInactiveUserCannotSignIn(t *testing.T) {
	svc, _, _ := newService(t, false)

	_, err := svc.SignIn(context.Background(), "sam@acme.test", "Str0ng!pass")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestChangePassword(t *testing.T) {
	svc, repo, user := newService(t, true)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, user.ID, "wrong", "N3w!password")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "Str0ng!pass", "N3w!password"))
	assert.NoError(t, password.Compare(repo.users[user.ID].PasswordHash, "N3w!password"))

	_, err = svc.SignIn(ctx, "sam@acme.test", "N3w!password")
	assert.NoError(t, err)
}

func TestGetMeUnknownUser(t *testing.T) {
	svc, _, _ := newService(t, true)

	_, err := svc.GetMe(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
