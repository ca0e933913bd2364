package repository

import (
	"strings"
	"testing"

	"campus_marketplace/internal/listings/domain"
)

func TestTitleSuggestionsQueryIsTenantScopedAndVisible(t *testing.T) {
	query := strings.ToLower(titleSuggestionsQuery)

	requiredFragments := []string{
		"where l.university_id = $1",
		"l.is_active and l.moderation_status = 'approved'",
		"l.title ilike $2",
		"group by l.title",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected tenant-scoped query fragment %q to be present", fragment)
		}
	}
}

func TestOrderByFallsBackToRecency(t *testing.T) {
	if got := OrderBy(nil); got != recencyOrder {
		t.Fatalf("expected recency fallback, got %q", got)
	}
	if got := OrderBy([]domain.OrderTerm{{Field: "price; DROP TABLE listings"}}); got != recencyOrder {
		t.Fatalf("unknown fields must not reach SQL, got %q", got)
	}
}

func TestOrderByRendersTerms(t *testing.T) {
	got := OrderBy([]domain.OrderTerm{
		{Field: domain.SortFieldPrice},
		{Field: domain.SortFieldID},
	})
	if got != "l.price_cents ASC, l.id ASC" {
		t.Fatalf("unexpected order by %q", got)
	}
}

func TestRankExpressionFollowsTextMode(t *testing.T) {
	expr, args := rankExpr(TextMatch{Mode: TextFullText, Query: "calculus"}, 4)
	if !strings.Contains(expr, "ts_rank") || !strings.Contains(expr, "$4") || len(args) != 1 {
		t.Fatalf("unexpected full-text rank %q %v", expr, args)
	}

	expr, args = rankExpr(TextMatch{Mode: TextFuzzy, Query: "calculas"}, 2)
	if expr != "similarity(l.title, $2)" || len(args) != 1 {
		t.Fatalf("unexpected fuzzy rank %q %v", expr, args)
	}

	expr, args = rankExpr(TextMatch{Mode: TextNone}, 2)
	if expr != "NULL::real" || args != nil {
		t.Fatalf("filter-only reads carry no rank, got %q %v", expr, args)
	}
}

func TestBuildWhereAppendsTextClauseWithoutMutatingScope(t *testing.T) {
	scope := Where(Visible())
	where, args, next := buildWhere(Query{Where: scope, Text: TextMatch{Mode: TextFullText, Query: "desk"}})

	if !strings.Contains(where, "websearch_to_tsquery('english', $2)") {
		t.Fatalf("expected full-text clause, got %s", where)
	}
	if len(args) != 2 || next != 3 {
		t.Fatalf("unexpected args/next %v %d", args, next)
	}
	if scope.Len() != 1 {
		t.Fatalf("scope was mutated: %d clauses", scope.Len())
	}
}
