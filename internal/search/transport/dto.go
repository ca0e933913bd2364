package transport

import (
	"strings"

	"campus_marketplace/internal/listings/domain"
	listingstransport "campus_marketplace/internal/listings/transport"
	"campus_marketplace/platform/validator"
)

// SearchRequest is bound from a JSON body (POST) or query parameters (GET).
// Size 0 means the default page size; larger sizes are capped, not rejected.
type SearchRequest struct {
	Query         string   `json:"query" form:"query" validate:"max=200"`
	Categories    []string `json:"categories" form:"categories" validate:"omitempty,max=8,dive,category"`
	Conditions    []string `json:"conditions" form:"conditions" validate:"omitempty,max=5,dive,condition"`
	MinPriceCents *int64   `json:"minPriceCents" form:"minPriceCents" validate:"omitempty,min=0"`
	MaxPriceCents *int64   `json:"maxPriceCents" form:"maxPriceCents" validate:"omitempty,min=0"`
	Location      string   `json:"location" form:"location" validate:"max=120"`
	DateFrom      string   `json:"dateFrom" form:"dateFrom" validate:"max=40"`
	SortBy        string   `json:"sortBy" form:"sortBy" validate:"max=32"`
	Page          int      `json:"page" form:"page" validate:"min=0,max=10000"`
	Size          int      `json:"size" form:"size" validate:"min=0"`
}

type AutocompleteRequest struct {
	Query string `form:"q" validate:"max=100"`
}

type HistoryRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1"`
}

// ProductResult is one search hit.
type ProductResult struct {
	listingstransport.ProductSummary
	Description    string   `json:"description"`
	RelevanceScore *float32 `json:"relevanceScore,omitempty"`
}

type SearchMetadata struct {
	SearchTimeMs   int64  `json:"searchTimeMs"`
	AppliedFilters string `json:"appliedFilters"`
	TotalFilters   int    `json:"totalFilters"`
	SortedBy       string `json:"sortedBy"`
	Cached         bool   `json:"cached"`
	SearchQuery    string `json:"searchQuery,omitempty"`
	MatchMode      string `json:"matchMode"`
}

type SearchResponse struct {
	Results      []ProductResult `json:"results"`
	TotalResults int64           `json:"totalResults"`
	TotalPages   int             `json:"totalPages"`
	CurrentPage  int             `json:"currentPage"`
	PageSize     int             `json:"pageSize"`
	HasNext      bool            `json:"hasNext"`
	HasPrevious  bool            `json:"hasPrevious"`
	Metadata     SearchMetadata  `json:"metadata"`
}

type InvalidateCacheResponse struct {
	Namespace string `json:"namespace"`
	Deleted   int    `json:"deleted"`
}

// RegisterValidations adds the marketplace enum rules used by the tags above.
func RegisterValidations(val *validator.Validator) error {
	categories := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		categories[i] = string(c)
	}
	if err := val.RegisterValidation("category", validator.OneOfFold(categories...)); err != nil {
		return err
	}

	conditions := make([]string, len(domain.Conditions))
	for i, c := range domain.Conditions {
		conditions[i] = string(c)
	}
	return val.RegisterValidation("condition", validator.OneOfFold(conditions...))
}

// TrimmedQuery is the query as the planner sees it.
func (r SearchRequest) TrimmedQuery() string {
	return strings.TrimSpace(r.Query)
}
