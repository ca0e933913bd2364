// Package ranking maps a requested sort key to a deterministic ordering of
// listings. The same terms drive the SQL ORDER BY and the in-memory sort.
package ranking

import (
	"bytes"
	"slices"
	"strings"

	"campus_marketplace/internal/listings/domain"
)

// SortKey is a client-facing sort option.
type SortKey string

const (
	Relevance  SortKey = "relevance"
	PriceAsc   SortKey = "price_asc"
	PriceDesc  SortKey = "price_desc"
	DateAsc    SortKey = "date_asc"
	DateDesc   SortKey = "date_desc"
	Popularity SortKey = "popularity"
)

// Parse folds value to a known key. Blank and unrecognized values become
// Relevance, which orders like DateDesc.
func Parse(value string) SortKey {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(value))); key {
	case PriceAsc, PriceDesc, DateAsc, DateDesc, Popularity:
		return key
	default:
		return Relevance
	}
}

func (k SortKey) String() string { return string(k) }

var idTieBreak = domain.OrderTerm{Field: domain.SortFieldID}

// Terms returns the ordering for key. Every ordering ends on id so pages are
// stable across equal sort values.
func Terms(key SortKey) []domain.OrderTerm {
	var terms []domain.OrderTerm
	switch Parse(string(key)) {
	case PriceAsc:
		terms = []domain.OrderTerm{{Field: domain.SortFieldPrice}}
	case PriceDesc:
		terms = []domain.OrderTerm{{Field: domain.SortFieldPrice, Desc: true}}
	case DateAsc:
		terms = []domain.OrderTerm{{Field: domain.SortFieldCreatedAt}}
	case Popularity:
		terms = []domain.OrderTerm{
			{Field: domain.SortFieldViewCount, Desc: true},
			{Field: domain.SortFieldFavoriteCount, Desc: true},
		}
	default:
		terms = []domain.OrderTerm{{Field: domain.SortFieldCreatedAt, Desc: true}}
	}
	return append(terms, idTieBreak)
}

// Sort orders items in place by key.
func Sort(items []domain.Listing, key SortKey) {
	terms := Terms(key)
	slices.SortStableFunc(items, func(a, b domain.Listing) int {
		for _, t := range terms {
			c := compareField(a, b, t.Field)
			if t.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareField(a, b domain.Listing, field domain.SortField) int {
	switch field {
	case domain.SortFieldPrice:
		return cmpInt64(a.PriceCents, b.PriceCents)
	case domain.SortFieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case domain.SortFieldViewCount:
		return cmpInt64(int64(a.ViewCount), int64(b.ViewCount))
	case domain.SortFieldFavoriteCount:
		return cmpInt64(int64(a.FavoriteCount), int64(b.FavoriteCount))
	case domain.SortFieldID:
		return bytes.Compare(a.ID[:], b.ID[:])
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
