// Package discovery provides the trending, recommended, similar and
// recently-viewed product endpoints.
package discovery

import (
	"campus_marketplace/internal/discovery/handler"
	"campus_marketplace/internal/discovery/service"
	apphttp "campus_marketplace/internal/http"
	"campus_marketplace/platform/cache"
	"campus_marketplace/platform/logger"
)

// Module is the discovery bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the discovery module over the shared listing store and
// view history.
func NewModule(listings service.ListingReader, views service.ViewHistory, resultCache *cache.ResultCache, log *logger.Logger) *Module {
	svc := service.New(listings, views, resultCache, log)
	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "discovery"
}

// Service returns the discovery engine for the trending warmer.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts discovery routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/discovery"))
}

var _ apphttp.Module = (*Module)(nil)
