package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadcrm_backend/internal/auth/password"
	"leadcrm_backend/internal/auth/repository"
	"leadcrm_backend/internal/auth/service"
	"leadcrm_backend/internal/auth/token"
	authvalidator "leadcrm_backend/internal/auth/validator"
	"leadcrm_backend/platform/httpkit"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jwtConfig struct{}

func (jwtConfig) GetJWTAccessSecret() string { return "test-secret" }

type memoryRepo struct {
	user repository.User
}

func (r *memoryRepo) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	if email != r.user.Email {
		return repository.User{}, repository.ErrNotFound
	}
	return r.user, nil
}

func (r *memoryRepo) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	if id != r.user.ID {
		return repository.User{}, repository.ErrNotFound
	}
	return r.user, nil
}

func (r *memoryRepo) UpdatePassword(_ context.Context, _ uuid.UUID, hash string) error {
	r.user.PasswordHash = hash
	return nil
}

func newEngine(t *testing.T) (*gin.Engine, *memoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := password.Hash("Str0ng!pass")
	require.NoError(t, err)
	companyID := uuid.New()
	repo := &memoryRepo{user: repository.User{
		ID:           uuid.New(),
		CompanyID:    &companyID,
		Name:         "Ada",
		Email:        "ada@acme.test",
		Role:         "admin",
		IsActive:     true,
		PasswordHash: hash,
	}}

	val := validator.New()
	require.NoError(t, authvalidator.Register(val))
	svc := service.New(repo, token.NewIssuer(jwtConfig{}.GetJWTAccessSecret(), time.Hour), logger.Nop())
	h := New(svc, val)

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	h.RegisterRoutes(v1.Group("/auth"))
	protected := v1.Group("", httpkit.AuthRequired(jwtConfig{}))
	protected.GET("/users/me", h.GetMe)
	protected.POST("/users/me/password", h.ChangePassword)
	return engine, repo
}

func request(engine *gin.Engine, method, path, bearer string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestSignInTokenAuthenticatesProfile(t *testing.T) {
	engine, repo := newEngine(t)

	rec := request(engine, http.MethodPost, "/api/v1/auth/sign-in", "", map[string]string{"email": "ada@acme.test", "password": "Str0ng!pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var auth struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	require.NotEmpty(t, auth.AccessToken)

	rec = request(engine, http.MethodGet, "/api/v1/users/me", auth.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), repo.user.ID.String())
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)
}

func TestSignInWrongPasswordIsUnauthorized(t *testing.T) {
	engine, _ := newEngine(t)

	rec := request(engine, http.MethodPost, "/api/v1/auth/sign-in", "", map[string]string{"email": "ada@acme.test", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(engine, http.MethodPost, "/api/v1/auth/sign-in", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileRequiresToken(t *testing.T) {
	engine, _ := newEngine(t)

	rec := request(engine, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordEnforcesPolicy(t *testing.T) {
	engine, _ := newEngine(t)
	rec := request(engine, http.MethodPost, "/api/v1/auth/sign-in", "", map[string]string{"email": "ada@acme.test", "password": "Str0ng!pass"})
	require.Equal(t, http.StatusOK, rec.Code)
	var auth struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))

	rec = request(engine, http.MethodPost, "/api/v1/users/me/password", auth.AccessToken, map[string]string{"currentPassword": "Str0ng!pass", "newPassword": "weak"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(engine, http.MethodPost, "/api/v1/users/me/password", auth.AccessToken, map[string]string{"currentPassword": "Str0ng!pass", "newPassword": "An0ther!pass"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
