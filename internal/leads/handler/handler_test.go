package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadcrm_backend/internal/imports"
	"leadcrm_backend/internal/leads/distribution"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/leadstest"
	"leadcrm_backend/internal/leads/management"
	"leadcrm_backend/internal/leads/reporting"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/httpkit"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	engine    *gin.Engine
	repo      *leadstest.Repository
	users     *leadstest.Directory
	companyID uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := leadstest.NewRepository()
	users := leadstest.NewDirectory()
	bus := &leadstest.Bus{}
	log := logger.Nop()

	val := validator.New()
	require.NoError(t, val.RegisterValidation("leadstatus", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseStatus(fl.Field().String())
		return ok
	}))

	mgmt := management.New(repo, users, bus, log, false)
	dist := distribution.New(repo, users, bus, log)
	reports := reporting.New(repo, users, nil, log, time.UTC, 96*time.Hour)
	importer := distribution.NewFileImporter(imports.NewParser(imports.DefaultAliases, time.UTC), dist, nil, log)

	engine := gin.New()
	api := engine.Group("/api/v1", fakeAuth)
	stats := NewStatsHandler(reports)
	leadsGroup := api.Group("/leads")
	leadsGroup.GET("/stale", stats.Stale)
	New(mgmt, dist, importer, val, 1<<20).RegisterRoutes(leadsGroup)
	stats.RegisterRoutes(api.Group("/stats"))

	return &testServer{engine: engine, repo: repo, users: users, companyID: uuid.New()}
}

// fakeAuth trusts X-User, X-Role and X-Company headers.
func fakeAuth(c *gin.Context) {
	if id, err := uuid.Parse(c.GetHeader("X-User")); err == nil {
		c.Set(httpkit.ContextUserIDKey, id)
		c.Set(httpkit.ContextRoleKey, c.GetHeader("X-Role"))
	}
	if id, err := uuid.Parse(c.GetHeader("X-Company")); err == nil {
		c.Set(httpkit.ContextCompanyIDKey, id)
	}
	c.Next()
}

func (s *testServer) do(t *testing.T, actor domain.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.send(req, actor)
}

func (s *testServer) send(req *http.Request, actor domain.Actor) *httptest.ResponseRecorder {
	req.Header.Set("X-User", actor.UserID.String())
	req.Header.Set("X-Role", actor.Role)
	req.Header.Set("X-Company", actor.CompanyID.String())
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) actor(role string) domain.Actor {
	return domain.Actor{UserID: uuid.New(), Role: role, CompanyID: s.companyID}
}

func TestCreateAsSalespersonForcesOwnershipAndFresh(t *testing.T) {
	s := newTestServer(t)
	sales := s.users.Add(leadstest.Salesperson(s.companyID, "X"))
	actor := domain.Actor{UserID: sales.ID, Role: domain.RoleSalesperson, CompanyID: s.companyID}

	rec := s.do(t, actor, http.MethodPost, "/api/v1/leads", map[string]any{
		"name": "A", "phone": "123", "country": "India", "assignedTo": uuid.New().String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var lead transport.LeadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
	assert.Equal(t, "fresh", lead.Status)
	require.NotNil(t, lead.AssignedTo)
	assert.Equal(t, sales.ID, *lead.AssignedTo)
}

func TestCreateIgnoresMalformedAssigneeForSalesperson(t *testing.T) {
	s := newTestServer(t)
	sales := s.users.Add(leadstest.Salesperson(s.companyID, "X"))
	actor := domain.Actor{UserID: sales.ID, Role: domain.RoleSalesperson, CompanyID: s.companyID}

	rec := s.do(t, actor, http.MethodPost, "/api/v1/leads", map[string]any{
		"name": "A", "phone": "123", "country": "India", "assignedTo": "bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var lead transport.LeadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
	require.NotNil(t, lead.AssignedTo)
	assert.Equal(t, sales.ID, *lead.AssignedTo)

	rec = s.do(t, s.actor(domain.RoleAdmin), http.MethodPost, "/api/v1/leads", map[string]any{
		"name": "A", "phone": "123", "country": "India", "assignedTo": "bob",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMissingFieldsIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, s.actor(domain.RoleAdmin), http.MethodPost, "/api/v1/leads", map[string]any{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t)
	lead := s.repo.Seed(repository.Lead{CompanyID: s.companyID, Name: "A", Phone: "1", Country: "India"})

	rec := s.do(t, s.actor(domain.RoleAdmin), http.MethodPatch, "/api/v1/leads/"+lead.ID.String(), map[string]any{"status": "won-ish"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, s.actor(domain.RoleAdmin), http.MethodPatch, "/api/v1/leads/"+lead.ID.String(), map[string]any{"status": "registered"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out transport.LeadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "closed", out.Status)
	assert.NotNil(t, out.ClosedAt)
}

func TestUpdateOtherSalespersonsLeadIsForbidden(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	lead := s.repo.Seed(repository.Lead{CompanyID: s.companyID, Name: "A", Phone: "1", Country: "India", AssignedTo: &owner})

	rec := s.do(t, s.actor(domain.RoleSalesperson), http.MethodPatch, "/api/v1/leads/"+lead.ID.String(), map[string]any{"notes": "mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	stored, _ := s.repo.Lead(lead.ID)
	assert.Empty(t, stored.Notes)
}

func TestRedistributeWithoutSalespeopleIsPolicyViolation(t *testing.T) {
	s := newTestServer(t)
	lead := s.repo.Seed(repository.Lead{CompanyID: s.companyID, Name: "A", Phone: "1", Country: "India"})

	rec := s.do(t, s.actor(domain.RoleAdmin), http.MethodPost, "/api/v1/leads/redistribute", map[string]any{"leadIds": []string{lead.ID.String()}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestManagerRoutesRejectSalespeople(t *testing.T) {
	s := newTestServer(t)
	sales := s.actor(domain.RoleSalesperson)

	rec := s.do(t, sales, http.MethodPost, "/api/v1/leads/assign", map[string]any{"leadIds": []string{uuid.NewString()}, "assignTo": uuid.NewString()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, sales, http.MethodGet, "/api/v1/stats/admin", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	lead := s.repo.Seed(repository.Lead{CompanyID: s.companyID, Name: "A", Phone: "1", Country: "India"})
	rec = s.do(t, s.actor(domain.RoleAccountant), http.MethodDelete, "/api/v1/leads/"+lead.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestImportUploadsCSV(t *testing.T) {
	s := newTestServer(t)
	sales := s.users.Add(leadstest.Salesperson(s.companyID, "X"))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "leads.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Name,Phone,Country\nA,1,India\nB,,India\nC,3,India\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads/import", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := s.send(req, s.actor(domain.RoleAdmin))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out transport.ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Created)
	assert.Equal(t, 2, out.PerOwner[sales.ID.String()])
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, 3, out.Skipped[0].Row)
}

func TestImportRejectsUnsupportedFile(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "leads.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads/import", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := s.send(req, s.actor(domain.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusCountsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.repo.Seed(repository.Lead{CompanyID: s.companyID, Name: "A", Phone: "1", Country: "India"})

	rec := s.do(t, s.actor(domain.RoleAdmin), http.MethodGet, "/api/v1/stats/status?window=fortnightly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, s.actor(domain.RoleAdmin), http.MethodGet, "/api/v1/stats/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Window string         `json:"window"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "all", out.Window)
	assert.Equal(t, 1, out.Counts["all"])
	assert.Equal(t, 1, out.Counts["fresh"])
}

func TestStaleEndpointListsOldFreshLeads(t *testing.T) {
	s := newTestServer(t)
	s.repo.Seed(repository.Lead{CompanyID: s.companyID, Name: "Old", Phone: "1", Country: "India", CreatedAt: time.Now().Add(-5 * 24 * time.Hour)})
	s.repo.Seed(repository.Lead{CompanyID: s.companyID, Name: "New", Phone: "2", Country: "India"})

	rec := s.do(t, s.actor(domain.RoleAdmin), http.MethodGet, "/api/v1/leads/stale", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out transport.LeadsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Old", out.Items[0].Name)
}
