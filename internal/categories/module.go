package categories

import (
	apphttp "classifieds_backend/internal/http"
	"classifieds_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the categories HTTP routes.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), log)
	return &Module{handler: NewHandler(svc), service: svc}
}

func (m *Module) Name() string {
	return "categories"
}

// Service returns the service layer for other modules.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/categories", m.handler.List)
}

var _ apphttp.Module = (*Module)(nil)
