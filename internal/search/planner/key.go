package planner

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"campus_marketplace/internal/listings/domain"
	"campus_marketplace/platform/cache"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	sentinelAll = "all"
	sentinelMin = "0"
	sentinelMax = "max"

	// textMarker prefixes user-supplied text so it can never equal a sentinel.
	textMarker = "="
)

// CacheKey builds the canonical search cache key. Requests with the same
// effective parameters collide; any differing parameter yields a new key.
// req must be normalized.
func CacheKey(tenantID uuid.UUID, req Request) string {
	f := req.Filters

	query := textPart(req.Query)

	categories := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		categories[i] = string(c)
	}
	conditions := make([]string, len(f.Conditions))
	for i, c := range f.Conditions {
		conditions[i] = string(c)
	}

	low, high := sentinelMin, sentinelMax
	if f.MinPriceCents != nil {
		low = Dollars(*f.MinPriceCents)
	}
	if f.MaxPriceCents != nil {
		high = Dollars(*f.MaxPriceCents)
	}

	location := textPart(f.Location)

	dateFrom := sentinelAll
	if f.CreatedFrom != nil {
		dateFrom = f.CreatedFrom.UTC().Format(time.RFC3339Nano)
	}

	return cache.Key(
		tenantID.String(),
		query,
		canonicalSet(categories),
		canonicalSet(conditions),
		low,
		high,
		location,
		dateFrom,
		string(req.Sort),
		strconv.Itoa(req.Page),
		strconv.Itoa(req.Size),
	)
}

// CollapseSpace trims value and collapses inner whitespace runs to one space.
// Normalize applies it to the query and location, so the executed predicate
// and the cache key see the same text.
func CollapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// FoldCase lower-cases value for keys and deduplication. Every text
// predicate matches case-insensitively.
func FoldCase(value string) string {
	return cases.Lower(language.Und).String(value)
}

func textPart(value string) string {
	if value == "" {
		return sentinelAll
	}
	return textMarker + FoldCase(value)
}

func canonicalSet(values []string) string {
	if len(values) == 0 {
		return sentinelAll
	}
	set := make([]string, 0, len(values))
	for _, v := range values {
		set = append(set, strings.ToUpper(strings.TrimSpace(v)))
	}
	slices.Sort(set)
	return strings.Join(slices.Compact(set), ",")
}

// CanonicalCategories dedupes and orders categories so that equivalent
// requests build the same predicate and summary.
func CanonicalCategories(values []domain.Category) []domain.Category {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// CanonicalConditions is CanonicalCategories for conditions.
func CanonicalConditions(values []domain.Condition) []domain.Condition {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
