// Package search provides the product search, autocomplete and search
// history endpoints.
package search

import (
	apphttp "campus_marketplace/internal/http"
	"campus_marketplace/internal/search/handler"
	"campus_marketplace/internal/search/planner"
	"campus_marketplace/internal/search/service"
	"campus_marketplace/internal/search/transport"
	"campus_marketplace/platform/cache"
	"campus_marketplace/platform/config"
	"campus_marketplace/platform/logger"
	"campus_marketplace/platform/validator"
)

// ListingStore is what search reads from the listing store.
type ListingStore interface {
	planner.Store
	service.TitleSource
}

type Module struct {
	handler *handler.Handler
}

// NewModule wires the planner over listings and registers the request
// validation rules search depends on.
func NewModule(listings ListingStore, history service.History, resultCache *cache.ResultCache, val *validator.Validator, cfg config.SearchConfig, log *logger.Logger) (*Module, error) {
	if err := transport.RegisterValidations(val); err != nil {
		return nil, err
	}

	p := planner.New(listings, cfg.GetFuzzyThreshold())
	svc := service.New(p, listings, history, resultCache, cfg, log)
	return &Module{handler: handler.New(svc, val)}, nil
}

func (m *Module) Name() string {
	return "search"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/search"))
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
