// Package service runs product searches through the result cache and the
// planner and serves autocomplete and search history reads.
package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"campus_marketplace/internal/listings/domain"
	"campus_marketplace/internal/listings/repository"
	listingstransport "campus_marketplace/internal/listings/transport"
	"campus_marketplace/internal/search/planner"
	"campus_marketplace/internal/search/ranking"
	"campus_marketplace/internal/search/transport"
	"campus_marketplace/platform/apperr"
	"campus_marketplace/platform/cache"
	"campus_marketplace/platform/config"
	"campus_marketplace/platform/logger"

	"github.com/google/uuid"
)

const (
	autocompleteMinRunes = 2
	autocompleteLimit    = 10
)

// Planner executes a normalized request.
type Planner interface {
	Plan(ctx context.Context, tenantID uuid.UUID, req planner.Request) (planner.Page, error)
}

// TitleSource suggests listing titles for autocomplete.
type TitleSource interface {
	TitleSuggestions(ctx context.Context, tenantID uuid.UUID, prefix string, limit int) ([]string, error)
}

// History is the search history store.
type History interface {
	Record(ctx context.Context, userID uuid.UUID, query string, resultCount int)
	RecentSearches(ctx context.Context, userID uuid.UUID, limit int) []string
	PopularSearches(ctx context.Context, limit int) []string
	PopularWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
}

type Service struct {
	planner Planner
	titles  TitleSource
	history History
	cache   *cache.ResultCache
	limits  planner.Limits
	log     *logger.Logger
	now     func() time.Time
}

func New(p Planner, titles TitleSource, history History, resultCache *cache.ResultCache, cfg config.SearchConfig, log *logger.Logger) *Service {
	return &Service{
		planner: p,
		titles:  titles,
		history: history,
		cache:   resultCache,
		limits: planner.Limits{
			DefaultSize: cfg.GetSearchDefaultPageSize(),
			MaxSize:     cfg.GetSearchMaxPageSize(),
		},
		log: log,
		now: time.Now,
	}
}

// Search answers one product search. Identical effective requests within the
// cache TTL are replayed from the cache with metadata.cached set. Every
// non-blank query is recorded in the caller's history, cached or not.
func (s *Service) Search(ctx context.Context, tenantID, userID uuid.UUID, req transport.SearchRequest) (*transport.SearchResponse, error) {
	preq, err := s.toPlannerRequest(req)
	if err != nil {
		return nil, err
	}
	preq = preq.Normalize(s.limits)

	resp, hit, err := cache.GetOrCompute(ctx, s.cache, cache.NamespaceSearch, planner.CacheKey(tenantID, preq),
		func(ctx context.Context) (transport.SearchResponse, error) {
			return s.execute(ctx, tenantID, preq)
		})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "search failed", err).WithOp("search.Search")
	}
	resp.Metadata.Cached = hit

	s.history.Record(ctx, userID, preq.Query, int(resp.TotalResults))
	return &resp, nil
}

func (s *Service) execute(ctx context.Context, tenantID uuid.UUID, req planner.Request) (transport.SearchResponse, error) {
	started := s.now()

	page, err := s.planner.Plan(ctx, tenantID, req)
	if err != nil {
		return transport.SearchResponse{}, err
	}

	results := make([]transport.ProductResult, len(page.Items))
	for i, l := range page.Items {
		results[i] = transport.ProductResult{
			ProductSummary: listingstransport.ToSummary(l),
			Description:    l.Description,
			RelevanceScore: l.Relevance,
		}
	}

	summary := planner.Summarize(req.Filters)
	return transport.SearchResponse{
		Results:      results,
		TotalResults: page.Total,
		TotalPages:   page.TotalPages,
		CurrentPage:  page.Page,
		PageSize:     page.Size,
		HasNext:      page.HasNext(),
		HasPrevious:  page.HasPrevious(),
		Metadata: transport.SearchMetadata{
			SearchTimeMs:   s.now().Sub(started).Milliseconds(),
			AppliedFilters: summary.Description,
			TotalFilters:   summary.Count,
			SortedBy:       string(req.Sort),
			SearchQuery:    req.Query,
			MatchMode:      string(page.MatchMode),
		},
	}, nil
}

// toPlannerRequest converts and cross-checks the bound request. Struct tag
// validation has already run.
func (s *Service) toPlannerRequest(req transport.SearchRequest) (planner.Request, error) {
	if req.MinPriceCents != nil && req.MaxPriceCents != nil && *req.MinPriceCents > *req.MaxPriceCents {
		return planner.Request{}, apperr.Validation("minPriceCents must not exceed maxPriceCents")
	}
	if req.Page < 0 || req.Page > planner.MaxPage {
		return planner.Request{}, apperr.Validation("page out of range")
	}
	if req.Size < 0 {
		return planner.Request{}, apperr.Validation("size must not be negative")
	}

	filters := repository.Filters{
		MinPriceCents: req.MinPriceCents,
		MaxPriceCents: req.MaxPriceCents,
		Location:      planner.CollapseSpace(req.Location),
	}

	for _, raw := range req.Categories {
		category, ok := domain.ParseCategory(raw)
		if !ok {
			return planner.Request{}, apperr.Validation("unknown category").WithDetails(raw)
		}
		filters.Categories = append(filters.Categories, category)
	}
	filters.Categories = planner.CanonicalCategories(filters.Categories)

	for _, raw := range req.Conditions {
		condition, ok := domain.ParseCondition(raw)
		if !ok {
			return planner.Request{}, apperr.Validation("unknown condition").WithDetails(raw)
		}
		filters.Conditions = append(filters.Conditions, condition)
	}
	filters.Conditions = planner.CanonicalConditions(filters.Conditions)

	createdFrom, err := planner.ParseDateFrom(req.DateFrom, s.now())
	if err != nil {
		return planner.Request{}, err
	}
	filters.CreatedFrom = createdFrom

	return planner.Request{
		Query:   req.TrimmedQuery(),
		Filters: filters,
		Sort:    ranking.SortKey(req.SortBy),
		Page:    req.Page,
		Size:    req.Size,
	}, nil
}

// Autocomplete suggests up to ten completions for q: matching listing titles
// first, then popular past queries, deduplicated case-insensitively. Queries
// shorter than two characters return nothing. Failures degrade to an empty
// list.
func (s *Service) Autocomplete(ctx context.Context, tenantID uuid.UUID, q string) []string {
	q = planner.CollapseSpace(q)
	if utf8.RuneCountInString(q) < autocompleteMinRunes {
		return []string{}
	}

	key := cache.Key(tenantID.String(), planner.FoldCase(q))
	suggestions, _, err := cache.GetOrCompute(ctx, s.cache, cache.NamespaceAutocomplete, key,
		func(ctx context.Context) ([]string, error) {
			return s.computeAutocomplete(ctx, tenantID, q)
		})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.WithContext(ctx).Error("autocomplete failed", "error", err)
		}
		return []string{}
	}
	return suggestions
}

func (s *Service) computeAutocomplete(ctx context.Context, tenantID uuid.UUID, q string) ([]string, error) {
	titles, err := s.titles.TitleSuggestions(ctx, tenantID, q, autocompleteLimit)
	if err != nil {
		return nil, err
	}

	var popular []string
	if len(titles) < autocompleteLimit {
		popular, err = s.history.PopularWithPrefix(ctx, q, autocompleteLimit)
		if err != nil {
			s.log.WithContext(ctx).Warn("autocomplete popular queries unavailable", "error", err)
		}
	}

	return MergeSuggestions(autocompleteLimit, titles, popular), nil
}

// MergeSuggestions concatenates the lists in order, dropping blanks and
// case-insensitive duplicates, and stops at limit.
func MergeSuggestions(limit int, lists ...[]string) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, list := range lists {
		for _, v := range list {
			if len(out) == limit {
				return out
			}
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			k := planner.FoldCase(planner.CollapseSpace(v))
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// RecentSearches returns the caller's latest distinct queries.
func (s *Service) RecentSearches(ctx context.Context, userID uuid.UUID, limit int) []string {
	return s.history.RecentSearches(ctx, userID, limit)
}

// PopularSearches returns the most frequent queries of the last 30 days.
func (s *Service) PopularSearches(ctx context.Context, limit int) []string {
	return s.history.PopularSearches(ctx, limit)
}

// InvalidateCache drops every entry of the named namespace.
func (s *Service) InvalidateCache(ctx context.Context, namespace string) (int, error) {
	ns, ok := cache.ParseNamespace(namespace)
	if !ok {
		return 0, apperr.BadRequest("unknown cache namespace").WithDetails(namespace)
	}
	n, err := s.cache.Invalidate(ctx, ns)
	if err != nil {
		return n, apperr.Wrap(apperr.KindInternal, "cache invalidation failed", err).WithOp("search.InvalidateCache")
	}
	s.log.Info("cache namespace invalidated", "namespace", ns, "deleted", n)
	return n, nil
}
