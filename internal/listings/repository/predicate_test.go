package repository

import (
	"strings"
	"testing"
	"time"

	"campus_marketplace/internal/listings/domain"

	"github.com/google/uuid"
)

func int64Ptr(v int64) *int64 { return &v }

func TestPredicateBuildNumbersPlaceholdersInOrder(t *testing.T) {
	tenant := uuid.New()
	sql, args, next := VisibleIn(tenant).And(CategoryEquals(domain.CategoryBooks)).Build(1)

	want := "(l.university_id = $1) AND (l.is_active AND l.moderation_status = $2) AND (l.category = $3)"
	if sql != want {
		t.Fatalf("unexpected sql:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 3 || args[0] != tenant || args[1] != "APPROVED" || args[2] != "BOOKS" {
		t.Fatalf("unexpected args %v", args)
	}
	if next != 4 {
		t.Fatalf("expected next placeholder 4, got %d", next)
	}
}

func TestEmptyPredicateRendersTrue(t *testing.T) {
	sql, args, next := Where().Build(3)
	if sql != "TRUE" || len(args) != 0 || next != 3 {
		t.Fatalf("unexpected empty build: %q %v %d", sql, args, next)
	}
}

func TestFiltersSkipAbsentValues(t *testing.T) {
	var f Filters
	if f.HasAny() {
		t.Fatal("zero filters should report none present")
	}
	if got := f.Apply(Where()).Len(); got != 0 {
		t.Fatalf("expected no clauses, got %d", got)
	}

	f.Location = "   "
	if f.HasAny() {
		t.Fatal("blank location should not count as a filter")
	}
}

func TestFiltersApplyEveryPresentValue(t *testing.T) {
	from := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	f := Filters{
		Categories:    []domain.Category{domain.CategoryTextbooks},
		Conditions:    []domain.Condition{domain.ConditionGood, domain.ConditionFair},
		MinPriceCents: int64Ptr(0),
		MaxPriceCents: int64Ptr(5000),
		Location:      "Library",
		CreatedFrom:   &from,
	}
	sql, args, _ := f.Apply(Where()).Build(1)

	for _, fragment := range []string{
		"l.category = ANY($1)",
		"l.condition = ANY($2)",
		"l.price_cents >= $3",
		"l.price_cents <= $4",
		"l.pickup_location ILIKE $5",
		"l.created_at >= $6",
	} {
		if !strings.Contains(sql, fragment) {
			t.Fatalf("expected %q in %s", fragment, sql)
		}
	}
	if args[2] != int64(0) {
		t.Fatalf("explicit zero minimum must be kept, got %v", args[2])
	}
	if args[4] != "%Library%" {
		t.Fatalf("unexpected location pattern %v", args[4])
	}
}

func TestLocationPatternEscapesWildcards(t *testing.T) {
	c, ok := LocationContains("50%_off\\")
	if !ok {
		t.Fatal("expected location clause")
	}
	if got := c.Args[0]; got != `%50\%\_off\\%` {
		t.Fatalf("unexpected escaped pattern %v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	base := VisibleIn(uuid.New())
	extended := base.Clone().And(FullTextMatch("calculus"))

	if base.Len() != 2 || extended.Len() != 3 {
		t.Fatalf("clone leaked clauses: base=%d extended=%d", base.Len(), extended.Len())
	}
}

func TestFuzzyMatchUsesTrigramOrDescription(t *testing.T) {
	sql, args, _ := Where(FuzzyMatch("calculas", 0.3)).Build(1)
	if sql != "(similarity(l.title, $1) >= $2 OR l.description ILIKE $3)" {
		t.Fatalf("unexpected fuzzy sql %s", sql)
	}
	if args[1] != 0.3 || args[2] != "%calculas%" {
		t.Fatalf("unexpected fuzzy args %v", args)
	}
}
