package handler

import (
	"net/http"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/management"
	"leadcrm_backend/internal/leads/reporting"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatsHandler serves dashboards, leaderboards and the stale list.
type StatsHandler struct {
	reports *reporting.Service
}

func NewStatsHandler(reports *reporting.Service) *StatsHandler {
	return &StatsHandler{reports: reports}
}

func (h *StatsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/status", h.StatusCounts)
	rg.GET("/leaderboard", h.Leaderboard)
	rg.GET("/admin", httpkit.RequireRole(managerRoles...), h.AdminOverview)
	rg.GET("/salesperson/:id", h.SalespersonOverview)
}

func (h *StatsHandler) StatusCounts(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	window, valid := domain.ParseWindow(c.Query("window"))
	if !valid {
		httpkit.Error(c, http.StatusBadRequest, "window must be one of daily, weekly, monthly, yearly, all", nil)
		return
	}

	counts, err := h.reports.StatusCounts(c.Request.Context(), actor.CompanyID, window)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"window": window, "counts": counts})
}

func (h *StatsHandler) Leaderboard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	period, valid := domain.ParsePeriod(c.Query("period"))
	if !valid {
		httpkit.Error(c, http.StatusBadRequest, "period must be week or month", nil)
		return
	}

	board, err := h.reports.Leaderboard(c.Request.Context(), actor.CompanyID, period)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"period": period, "items": board})
}

func (h *StatsHandler) AdminOverview(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	dash, err := h.reports.AdminOverview(c.Request.Context(), actor.CompanyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dash)
}

func (h *StatsHandler) SalespersonOverview(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid user id", nil)
		return
	}

	dash, err := h.reports.SalespersonOverview(c.Request.Context(), actor, userID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dash)
}

// Stale lists unworked leads past the stale age, oldest first.
func (h *StatsHandler) Stale(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	leads, err := h.reports.StaleLeads(c.Request.Context(), actor.CompanyID)
	if httpkit.HandleError(c, err) {
		return
	}
	items := management.ToLeadResponses(leads)
	httpkit.OK(c, transport.LeadsResponse{Items: items, Count: len(items)})
}
