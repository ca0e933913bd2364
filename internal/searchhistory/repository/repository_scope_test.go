package repository

import (
	"strings"
	"testing"
)

func TestRecentDistinctQueryIsUserScoped(t *testing.T) {
	query := strings.ToLower(recentDistinctQuery)

	for _, fragment := range []string{
		"where user_id = $1",
		"group by search_query",
		"order by max(created_at) desc",
	} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected query fragment %q to be present", fragment)
		}
	}
}

func TestPopularQueriesRankByFrequencyThenRecency(t *testing.T) {
	for name, raw := range map[string]string{"popular": popularQuery, "prefix": popularWithPrefixQuery} {
		query := strings.ToLower(raw)
		for _, fragment := range []string{
			"where created_at > $1",
			"order by count(*) desc, max(created_at) desc",
		} {
			if !strings.Contains(query, fragment) {
				t.Fatalf("%s: expected query fragment %q to be present", name, fragment)
			}
		}
	}
}
