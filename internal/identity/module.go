// Package identity provides the tenancy bounded context module: companies,
// their users and the seat policy between them.
package identity

import (
	"leadcrm_backend/internal/events"
	apphttp "leadcrm_backend/internal/http"
	"leadcrm_backend/internal/identity/domain"
	"leadcrm_backend/internal/identity/handler"
	"leadcrm_backend/internal/identity/repository"
	"leadcrm_backend/internal/identity/service"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	if err := val.RegisterValidation("userrole", validUserRole); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}, nil
}

func validUserRole(fl validator.FieldLevel) bool {
	return domain.IsValidRole(fl.Field().String())
}

func (m *Module) Name() string {
	return "identity"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
