// Package planner turns a search request into listing-store reads. It picks
// full-text, fuzzy or filter-only matching and always applies tenant scope
// and visibility before any optional filter.
package planner

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"campus_marketplace/internal/listings/domain"
	"campus_marketplace/internal/listings/repository"
	"campus_marketplace/internal/search/ranking"

	"github.com/google/uuid"
)

// fuzzyMinRunes is the shortest query that may fall back to fuzzy matching.
// Shorter strings match almost everything approximately.
const fuzzyMinRunes = 4

// MaxPage bounds deep pagination.
const MaxPage = 10000

// Store is the slice of the listing repository the planner reads from.
type Store interface {
	Find(ctx context.Context, q repository.Query) (repository.Result, error)
	Exists(ctx context.Context, q repository.Query) (bool, error)
}

// Request is a validated search request.
type Request struct {
	Query   string
	Filters repository.Filters
	Sort    ranking.SortKey
	Page    int
	Size    int
}

// Limits bound the page size.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

// Normalize applies page defaults and bounds. The result is what the planner
// executes and what the cache key is built from.
func (r Request) Normalize(limits Limits) Request {
	r.Query = CollapseSpace(r.Query)
	r.Filters.Location = CollapseSpace(r.Filters.Location)
	r.Sort = ranking.Parse(string(r.Sort))
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Page > MaxPage {
		r.Page = MaxPage
	}
	if r.Size <= 0 {
		r.Size = limits.DefaultSize
	}
	if limits.MaxSize > 0 && r.Size > limits.MaxSize {
		r.Size = limits.MaxSize
	}
	return r
}

// Page is one ordered page of matches.
type Page struct {
	Items      []domain.Listing
	Total      int64
	Page       int
	Size       int
	TotalPages int
	MatchMode  repository.TextMode
}

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.Page+1 < p.TotalPages }

// HasPrevious reports whether an earlier page exists.
func (p Page) HasPrevious() bool { return p.Page > 0 }

// Planner executes search requests against a Store.
type Planner struct {
	store          Store
	fuzzyThreshold float64
}

// New creates a planner. fuzzyThreshold is the minimum trigram similarity for
// a fuzzy title match.
func New(store Store, fuzzyThreshold float64) *Planner {
	return &Planner{store: store, fuzzyThreshold: fuzzyThreshold}
}

// Plan runs req inside tenantID and returns the ordered page. req must be
// normalized.
func (p *Planner) Plan(ctx context.Context, tenantID uuid.UUID, req Request) (Page, error) {
	scope := repository.VisibleIn(tenantID)
	query := repository.Query{
		Where:  req.Filters.Apply(scope.Clone()),
		Text:   repository.TextMatch{Mode: repository.TextNone},
		Order:  ranking.Terms(req.Sort),
		Limit:  req.Size,
		Offset: req.Page * req.Size,
	}

	if req.Query != "" {
		text, ok, err := p.chooseText(ctx, scope, req)
		if err != nil {
			return Page{}, err
		}
		query.Text = text
		if !ok {
			return newPage(req, repository.Result{}, text.Mode), nil
		}
	}

	result, err := p.store.Find(ctx, query)
	if err != nil {
		return Page{}, fmt.Errorf("plan search: %w", err)
	}

	// With filters the fuzzy decision was already made by the existence check.
	if result.Total == 0 && query.Text.Mode == repository.TextFullText &&
		!req.Filters.HasAny() && fuzzyEligible(req.Query) {
		query.Text = p.fuzzy(req.Query)
		if result, err = p.store.Find(ctx, query); err != nil {
			return Page{}, fmt.Errorf("plan fuzzy search: %w", err)
		}
	}

	ranking.Sort(result.Items, req.Sort)
	return newPage(req, result, query.Text.Mode), nil
}

// chooseText decides between full-text and fuzzy matching. Without attribute
// filters the decision is deferred to the Find total. With filters the text
// match is first checked against the bare scope so that the filters narrow a
// text hit set instead of triggering the fuzzy fallback themselves. ok is
// false when nothing can match.
func (p *Planner) chooseText(ctx context.Context, scope *repository.Predicate, req Request) (repository.TextMatch, bool, error) {
	fullText := repository.TextMatch{Mode: repository.TextFullText, Query: req.Query}
	if !req.Filters.HasAny() {
		return fullText, true, nil
	}

	hit, err := p.store.Exists(ctx, repository.Query{Where: scope, Text: fullText})
	if err != nil {
		return repository.TextMatch{}, false, fmt.Errorf("check full-text match: %w", err)
	}
	if hit {
		return fullText, true, nil
	}
	if !fuzzyEligible(req.Query) {
		return fullText, false, nil
	}
	return p.fuzzy(req.Query), true, nil
}

func (p *Planner) fuzzy(query string) repository.TextMatch {
	return repository.TextMatch{Mode: repository.TextFuzzy, Query: query, Threshold: p.fuzzyThreshold}
}

func fuzzyEligible(query string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(query)) >= fuzzyMinRunes
}

func newPage(req Request, result repository.Result, mode repository.TextMode) Page {
	items := result.Items
	if items == nil {
		items = []domain.Listing{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((result.Total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page{
		Items:      items,
		Total:      result.Total,
		Page:       req.Page,
		Size:       req.Size,
		TotalPages: totalPages,
		MatchMode:  mode,
	}
}
