package handler

import (
	"io"
	"net/http"

	"leadcrm_backend/internal/imports"
	"leadcrm_backend/internal/leads/distribution"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/management"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/httpkit"
	"leadcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// Handler serves the /leads routes.
type Handler struct {
	mgmt        *management.Service
	dist        *distribution.Service
	importer    *distribution.FileImporter
	val         *validator.Validator
	maxFileSize int64
}

func New(mgmt *management.Service, dist *distribution.Service, importer *distribution.FileImporter, val *validator.Validator, maxFileSize int64) *Handler {
	return &Handler{mgmt: mgmt, dist: dist, importer: importer, val: val, maxFileSize: maxFileSize}
}

var managerRoles = []string{domain.RoleAdmin, domain.RoleAccountant, domain.RoleSuperAdmin}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)

	managers := rg.Group("", httpkit.RequireRole(managerRoles...))
	managers.POST("/import", h.Import)
	managers.POST("/redistribute", h.Redistribute)
	managers.POST("/assign", h.Assign)

	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", httpkit.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin), h.Delete)
	rg.GET("/:id/activities", h.ListActivities)
	rg.POST("/:id/activities", h.AddActivity)
}

// actorFrom resolves the caller and their tenant. It aborts the request and
// returns false when either is missing.
func actorFrom(c *gin.Context) (domain.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return domain.Actor{}, false
	}
	companyID, ok := httpkit.MustGetCompanyID(c, identity)
	if !ok {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: identity.UserID(), Role: identity.Role(), CompanyID: companyID}, true
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.Create(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.GetByID(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.UpdateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.Update(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.mgmt.Delete(c.Request.Context(), actor, id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListActivities(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}

	items, err := h.mgmt.ListActivities(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) AddActivity(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.AddActivityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	activity, err := h.mgmt.AddActivity(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, activity)
}

func (h *Handler) Redistribute(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.RedistributeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	leads, err := h.dist.Redistribute(c.Request.Context(), actor, req.LeadIDs)
	if httpkit.HandleError(c, err) {
		return
	}
	items := management.ToLeadResponses(leads)
	httpkit.OK(c, transport.LeadsResponse{Items: items, Count: len(items)})
}

func (h *Handler) Assign(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.AssignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	leads, err := h.dist.Assign(c.Request.Context(), actor, req.LeadIDs, req.AssignTo)
	if httpkit.HandleError(c, err) {
		return
	}
	items := management.ToLeadResponses(leads)
	httpkit.OK(c, transport.LeadsResponse{Items: items, Count: len(items)})
}

func (h *Handler) Import(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "missing file (field 'file')", nil)
		return
	}
	defer func() { _ = file.Close() }()

	if !imports.IsSupported(header.Filename) {
		httpkit.HandleError(c, apperr.Validation(imports.ErrUnsupportedFormat.Error()))
		return
	}
	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "file too large", gin.H{"maxBytes": h.maxFileSize})
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "failed to read file", nil)
		return
	}

	result, err := h.importer.ImportFile(c.Request.Context(), actor, header.Filename, header.Header.Get("Content-Type"), content)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toImportResponse(result))
}

func toImportResponse(result distribution.FileImportResult) transport.ImportResponse {
	perOwner := make(map[string]int, len(result.PerOwner))
	for owner, n := range result.PerOwner {
		perOwner[owner.String()] = n
	}
	skipped := make([]transport.SkippedRow, len(result.Skipped))
	for i, s := range result.Skipped {
		skipped[i] = transport.SkippedRow{Row: s.Row, Reason: s.Reason}
	}
	return transport.ImportResponse{
		Created:    len(result.Leads),
		Unassigned: result.Unassigned,
		PerOwner:   perOwner,
		Skipped:    skipped,
		ArchiveKey: result.ArchiveKey,
	}
}
