package planner

import (
	"strings"
	"testing"
	"time"

	"campus_marketplace/internal/listings/domain"
	"campus_marketplace/internal/listings/repository"

	"github.com/google/uuid"
)

func ptr(v int64) *int64 { return &v }

func TestCacheKeyCollidesForEquivalentRequests(t *testing.T) {
	tenant := uuid.New()
	a := Request{
		Query: "  Calculus   Textbook ",
		Filters: repository.Filters{
			Categories: []domain.Category{domain.CategoryBooks, domain.CategoryTextbooks},
			Location:   "Main Library",
		},
		Sort: "PRICE_ASC",
	}.Normalize(limits)
	b := Request{
		Query: "calculus textbook",
		Filters: repository.Filters{
			Categories: []domain.Category{domain.CategoryTextbooks, domain.CategoryBooks, domain.CategoryBooks},
			Location:   "main library",
		},
		Sort: "price_asc",
		Size: 20,
	}.Normalize(limits)

	if CacheKey(tenant, a) != CacheKey(tenant, b) {
		t.Fatalf("expected equal keys:\n%s\n%s", CacheKey(tenant, a), CacheKey(tenant, b))
	}
}

func TestCacheKeyUsesSentinels(t *testing.T) {
	tenant := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	got := CacheKey(tenant, Request{}.Normalize(limits))
	want := "11111111-1111-1111-1111-111111111111|all|all|all|0|max|all|all|relevance|0|20"
	if got != want {
		t.Fatalf("unexpected key\n got %s\nwant %s", got, want)
	}
}

func TestCacheKeyDiffersPerField(t *testing.T) {
	tenant := uuid.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := Request{}.Normalize(limits)

	variants := map[string]Request{
		"query":      {Query: "desk"},
		"category":   {Filters: repository.Filters{Categories: []domain.Category{domain.CategoryFurniture}}},
		"condition":  {Filters: repository.Filters{Conditions: []domain.Condition{domain.ConditionNew}}},
		"explicit 0": {Filters: repository.Filters{MinPriceCents: ptr(0)}},
		"max":        {Filters: repository.Filters{MaxPriceCents: ptr(5000)}},
		"location":   {Filters: repository.Filters{Location: "gym"}},
		"date":       {Filters: repository.Filters{CreatedFrom: &from}},
		"sort":       {Sort: "popularity"},
		"page":       {Page: 1},
		"size":       {Size: 10},
	}

	seen := map[string]string{CacheKey(tenant, base): "base"}
	for name, req := range variants {
		key := CacheKey(tenant, req.Normalize(limits))
		if other, dup := seen[key]; dup {
			t.Fatalf("%s collides with %s: %s", name, other, key)
		}
		seen[key] = name
	}

	if CacheKey(uuid.New(), base) == CacheKey(tenant, base) {
		t.Fatal("tenants must not share keys")
	}
}

func TestCacheKeyTreatsUnknownSortAsRelevance(t *testing.T) {
	tenant := uuid.New()
	a := CacheKey(tenant, Request{Sort: "whatever"}.Normalize(limits))
	b := CacheKey(tenant, Request{}.Normalize(limits))
	if a != b || !strings.Contains(a, "|relevance|") {
		t.Fatalf("expected relevance sentinel, got %s and %s", a, b)
	}
}

func TestCacheKeySeparatorInTextDoesNotShiftFields(t *testing.T) {
	tenant := uuid.New()
	inQuery := Request{Query: "desk|all"}.Normalize(limits)
	inLocation := Request{Query: "desk", Filters: repository.Filters{Location: "all"}}.Normalize(limits)

	if CacheKey(tenant, inQuery) == CacheKey(tenant, inLocation) {
		t.Fatalf("pipe in query collided with location filter: %s", CacheKey(tenant, inQuery))
	}
}

func TestCacheKeyLiteralAllIsNotSentinel(t *testing.T) {
	tenant := uuid.New()
	cases := map[string][2]Request{
		"query": {
			{Query: "all"},
			{},
		},
		"location": {
			{Filters: repository.Filters{Location: "ALL"}},
			{},
		},
	}
	for name, pair := range cases {
		a := CacheKey(tenant, pair[0].Normalize(limits))
		b := CacheKey(tenant, pair[1].Normalize(limits))
		if a == b {
			t.Fatalf("%s: literal all shares the unfiltered key %s", name, a)
		}
	}
}

func TestNormalizeCollapsesWhitespaceBeforeKeying(t *testing.T) {
	req := Request{
		Query:   " mini \t fridge ",
		Filters: repository.Filters{Location: "North   Hall"},
	}.Normalize(limits)

	if req.Query != "mini fridge" {
		t.Fatalf("expected collapsed query, got %q", req.Query)
	}
	if req.Filters.Location != "North Hall" {
		t.Fatalf("expected collapsed location, got %q", req.Filters.Location)
	}

	clause := repository.FuzzyMatch(req.Query, 0.3)
	if len(clause.Args) == 0 || clause.Args[0] != "mini fridge" {
		t.Fatalf("predicate saw %v, want the normalized query", clause.Args)
	}
}

func TestCacheKeyKeepsDistinctSpellings(t *testing.T) {
	tenant := uuid.New()
	a := CacheKey(tenant, Request{Query: "Straße"}.Normalize(limits))
	b := CacheKey(tenant, Request{Query: "strasse"}.Normalize(limits))
	if a == b {
		t.Fatalf("distinct spellings share key %s", a)
	}

	c := CacheKey(tenant, Request{Query: "STRASSE"}.Normalize(limits))
	if b != c {
		t.Fatalf("case variants should share a key:\n%s\n%s", b, c)
	}
}

func TestCacheKeyKeepsSubSecondDateFrom(t *testing.T) {
	tenant := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := base.Add(500 * time.Millisecond)

	a := CacheKey(tenant, Request{Filters: repository.Filters{CreatedFrom: &base}}.Normalize(limits))
	b := CacheKey(tenant, Request{Filters: repository.Filters{CreatedFrom: &later}}.Normalize(limits))
	if a == b {
		t.Fatalf("dateFrom values 500ms apart share key %s", a)
	}
}

func TestSummarizeCountsGroupsOnce(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Summarize(repository.Filters{
		Categories:    []domain.Category{domain.CategoryBooks, domain.CategoryTextbooks, domain.CategoryOther},
		MaxPriceCents: ptr(5000),
		Location:      " Dorm ",
		CreatedFrom:   &from,
	})

	if s.Count != 4 {
		t.Fatalf("expected 4 filter units, got %d", s.Count)
	}
	want := "Categories: [BOOKS TEXTBOOKS OTHER], Price: $0 - $50.00, Location: Dorm, Posted after: 2026-01-01T00:00:00Z"
	if s.Description != want {
		t.Fatalf("unexpected description\n got %s\nwant %s", s.Description, want)
	}
}

func TestSummarizeWithoutFilters(t *testing.T) {
	if s := Summarize(repository.Filters{}); s.Count != 0 || s.Description != "No filters" {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s := Summarize(repository.Filters{MinPriceCents: ptr(1050)}); s.Description != "Price: $10.50 - $∞" {
		t.Fatalf("unexpected open-ended price %q", s.Description)
	}
}

func TestParseDateFrom(t *testing.T) {
	now := time.Date(2026, 5, 10, 8, 30, 45, 0, time.UTC)

	got, err := ParseDateFrom("7D", now)
	if err != nil || !got.Equal(time.Date(2026, 5, 3, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected shorthand result %v %v", got, err)
	}

	got, err = ParseDateFrom("2026-01-02T03:04:05+02:00", now)
	if err != nil || got.Location() != time.UTC || got.Hour() != 1 {
		t.Fatalf("unexpected RFC3339 result %v %v", got, err)
	}

	if got, err = ParseDateFrom(" ", now); got != nil || err != nil {
		t.Fatalf("blank should mean no filter, got %v %v", got, err)
	}

	if _, err = ParseDateFrom("last week", now); err == nil {
		t.Fatal("expected validation error")
	}
}
