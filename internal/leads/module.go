// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"leadcrm_backend/internal/events"
	apphttp "leadcrm_backend/internal/http"
	"leadcrm_backend/internal/imports"
	"leadcrm_backend/internal/leads/distribution"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/handler"
	"leadcrm_backend/internal/leads/management"
	"leadcrm_backend/internal/leads/ports"
	"leadcrm_backend/internal/leads/reporting"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/httpkit"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the configuration the leads module reads.
type Config interface {
	config.LeadsConfig
	GetMinIOMaxFileSize() int64
}

// Deps are collaborators owned by other modules.
type Deps struct {
	Users   ports.UserDirectory
	Archive ports.ImportArchive
	Cache   reporting.Cache
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	stats     *handler.StatsHandler
	reporting *reporting.Service
	eventBus  events.Bus
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg Config, deps Deps, log *logger.Logger) (*Module, error) {
	if err := val.RegisterValidation("leadstatus", validLeadStatus); err != nil {
		return nil, err
	}

	repo := repository.New(pool)

	// Focused services (vertical slices)
	reportSvc := reporting.New(repo, deps.Users, deps.Cache, log, cfg.GetLocation(), cfg.GetStaleLeadAge())
	reportSvc.SubscribeInvalidation(eventBus)

	// Lead writers clear cached reports themselves so a read right after a
	// write sees it; the bus subscription covers roster changes.
	mgmtSvc := management.New(repo, deps.Users, eventBus, log, cfg.GetLeadValueStrict()).
		WithReportInvalidator(reportSvc)
	distSvc := distribution.New(repo, deps.Users, eventBus, log).
		WithReportInvalidator(reportSvc)

	parser := imports.NewParser(imports.DefaultAliases, cfg.GetLocation())
	importer := distribution.NewFileImporter(parser, distSvc, deps.Archive, log)

	return &Module{
		handler:   handler.New(mgmtSvc, distSvc, importer, val, cfg.GetMinIOMaxFileSize()),
		stats:     handler.NewStatsHandler(reportSvc),
		reporting: reportSvc,
		eventBus:  eventBus,
	}, nil
}

func validLeadStatus(fl validator.FieldLevel) bool {
	_, ok := domain.ParseStatus(fl.Field().String())
	return ok
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ScanStale runs stale detection for one company and publishes the result.
func (m *Module) ScanStale(ctx context.Context, companyID uuid.UUID) (int, error) {
	return m.reporting.DetectStale(ctx, companyID, m.eventBus)
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	leadsGroup.GET("/stale", httpkit.RequireRole(domain.RoleAdmin, domain.RoleAccountant, domain.RoleSuperAdmin), m.stats.Stale)
	m.handler.RegisterRoutes(leadsGroup)

	m.stats.RegisterRoutes(ctx.Protected.Group("/stats"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
