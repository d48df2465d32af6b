// Package ads provides the ads bounded context module: listing CRUD, search,
// image upload through the storage gateway and QR codes for ad pages.
package ads

import (
	"fmt"

	"classifieds_backend/internal/adapters/storage"
	"classifieds_backend/internal/ads/handler"
	"classifieds_backend/internal/ads/repository"
	"classifieds_backend/internal/ads/service"
	"classifieds_backend/internal/ads/transport"
	"classifieds_backend/internal/events"
	apphttp "classifieds_backend/internal/http"
	"classifieds_backend/platform/config"
	"classifieds_backend/platform/logger"
	"classifieds_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the ads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the ads module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	cats service.CategoryResolver,
	store storage.ObjectStorage,
	cleaner service.ImageCleaner,
	eventBus events.Bus,
	cfg config.AdsConfig,
	log *logger.Logger,
	val *validator.Validator,
) (*Module, error) {
	if err := transport.RegisterValidations(val); err != nil {
		return nil, fmt.Errorf("register ad validations: %w", err)
	}

	svc := service.New(repository.New(pool), cats, store, cleaner, eventBus, cfg, log)
	return &Module{
		handler: handler.New(svc, val, cfg.GetStorageMaxFileSize()),
		service: svc,
	}, nil
}

func (m *Module) Name() string {
	return "ads"
}

// Service returns the ads service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the ads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1, ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
