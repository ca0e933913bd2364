package repository

import (
	"context"

	"campus_marketplace/internal/listings/domain"

	"github.com/google/uuid"
)

// TextMode selects how a free-text query is matched.
type TextMode string

const (
	TextNone     TextMode = "filter"
	TextFullText TextMode = "fulltext"
	TextFuzzy    TextMode = "fuzzy"
)

// TextMatch is the free-text part of a query.
type TextMatch struct {
	Mode      TextMode
	Query     string
	Threshold float64
}

// Query is a predicate-based read with ordering and pagination.
type Query struct {
	Where  *Predicate
	Text   TextMatch
	Order  []domain.OrderTerm
	Limit  int
	Offset int
}

// Result is one page of listings plus the total match count.
type Result struct {
	Items []domain.Listing
	Total int64
}

// Repository is the listing record store consumed by search and discovery.
type Repository interface {
	Find(ctx context.Context, q Query) (Result, error)
	Exists(ctx context.Context, q Query) (bool, error)
	GetVisibleByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Listing, error)
	ListVisibleByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]domain.Listing, error)
	ListByCategory(ctx context.Context, tenantID uuid.UUID, category domain.Category, exclude *uuid.UUID, limit int) ([]domain.Listing, error)
	Trending(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.Listing, error)
	TitleSuggestions(ctx context.Context, tenantID uuid.UUID, prefix string, limit int) ([]string, error)
	TenantsWithVisibleListings(ctx context.Context) ([]uuid.UUID, error)
}
