package repository

import (
	"strings"
	"testing"
)

func TestUpsertViewQueryDedupesPerDay(t *testing.T) {
	query := strings.ToLower(upsertViewQuery)

	requiredFragments := []string{
		"on conflict (user_id, product_id, viewed_at_date)",
		"at time zone 'utc')::date",
		"greatest(product_views.viewed_at, excluded.viewed_at)",
		"returning (xmax = 0)",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected upsert fragment %q to be present", fragment)
		}
	}
}

func TestIncrementIsAtomicInSQL(t *testing.T) {
	if !strings.Contains(incrementViewCountQuery, "view_count = view_count + 1") {
		t.Fatal("view count must be incremented by the database, not read-modify-write")
	}
}

func TestRecentlyViewedQueryIsScopedAndVisible(t *testing.T) {
	query := strings.ToLower(recentlyViewedQuery)

	requiredFragments := []string{
		"where pv.user_id = $1",
		"group by pv.product_id",
		"l.university_id = $2",
		"l.is_active and l.moderation_status = 'approved'",
		"order by v.last_viewed_at desc",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected tenant-scoped query fragment %q to be present", fragment)
		}
	}
}

func TestViewedTogetherQueryIsScopedAndVisible(t *testing.T) {
	query := strings.ToLower(viewedTogetherQuery)

	requiredFragments := []string{
		"other.user_id = target.user_id",
		"other.product_id <> target.product_id",
		"l.university_id = $2",
		"l.is_active and l.moderation_status = 'approved'",
		"order by count(*) desc",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected co-view query fragment %q to be present", fragment)
		}
	}
}
