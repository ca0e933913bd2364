// Package listings provides the listing record store and the product detail
// endpoint.
package listings

import (
	apphttp "campus_marketplace/internal/http"
	"campus_marketplace/internal/listings/handler"
	"campus_marketplace/internal/listings/repository"
	"campus_marketplace/internal/listings/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the listings bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repo
}

// NewModule creates the listings module. views may be nil, in which case
// detail views are not tracked.
func NewModule(pool *pgxpool.Pool, views service.ViewRecorder) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, views)

	return &Module{
		handler: handler.New(svc),
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "listings"
}

// Repository returns the listing store shared with search and discovery.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts listing routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/listings/:id", m.handler.GetByID)
}

var _ apphttp.Module = (*Module)(nil)
