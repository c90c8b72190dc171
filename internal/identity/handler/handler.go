package handler

import (
	"net/http"

	"leadcrm_backend/internal/identity/domain"
	"leadcrm_backend/internal/identity/service"
	"leadcrm_backend/internal/identity/transport"
	"leadcrm_backend/platform/httpkit"
	"leadcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts /users and /companies on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admins := httpkit.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)

	users := rg.Group("/users")
	users.GET("", httpkit.RequireRole(domain.RoleAdmin, domain.RoleAccountant, domain.RoleSuperAdmin), h.ListUsers)
	users.POST("", admins, h.CreateUser)
	users.PATCH("/:id", admins, h.UpdateUser)
	users.POST("/:id/activate", admins, h.ActivateUser)
	users.POST("/:id/deactivate", admins, h.DeactivateUser)
	users.DELETE("/:id", admins, h.DeleteUser)

	companies := rg.Group("/companies")
	companies.POST("", httpkit.RequireRole(domain.RoleSuperAdmin), h.CreateCompany)
	companies.GET("/:id", h.GetCompany)
	companies.PATCH("/:id", admins, h.UpdateCompany)
}

// actorFrom resolves the caller. With requireCompany set, a company-less
// super admin must name the tenant through ?companyId=.
func actorFrom(c *gin.Context, requireCompany bool) (service.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return service.Actor{}, false
	}
	actor := service.Actor{UserID: id.UserID(), Role: id.Role()}
	if requireCompany {
		companyID, ok := httpkit.MustGetCompanyID(c, id)
		if !ok {
			return service.Actor{}, false
		}
		actor.CompanyID = companyID
		return actor, true
	}
	if companyID := id.CompanyID(); companyID != nil {
		actor.CompanyID = *companyID
	}
	return actor, true
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

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) ListUsers(c *gin.Context) {
	actor, ok := actorFrom(c, true)
	if !ok {
		return
	}
	result, err := h.svc.ListUsers(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) CreateUser(c *gin.Context) {
	actor, ok := actorFrom(c, false)
	if !ok {
		return
	}
	var req transport.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.svc.CreateUser(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	actor, ok := actorFrom(c, true)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.UpdateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.svc.UpdateUser(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, user)
}

func (h *Handler) ActivateUser(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	actor, ok := actorFrom(c, true)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.svc.SetActive(c.Request.Context(), actor, id, active)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	actor, ok := actorFrom(c, true)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteUser(c.Request.Context(), actor, id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateCompany(c *gin.Context) {
	actor, ok := actorFrom(c, false)
	if !ok {
		return
	}
	var req transport.CreateCompanyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	company, err := h.svc.CreateCompany(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, company)
}

func (h *Handler) GetCompany(c *gin.Context) {
	actor, ok := actorFrom(c, false)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	company, err := h.svc.GetCompany(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, company)
}

func (h *Handler) UpdateCompany(c *gin.Context) {
	actor, ok := actorFrom(c, false)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.UpdateCompanyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	company, err := h.svc.UpdateCompany(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, company)
}
