package repository

import (
	"fmt"
	"strings"
	"time"

	"campus_marketplace/internal/listings/domain"

	"github.com/google/uuid"
)

// Clause is a single SQL condition over the listings table aliased as l.
// Placeholders are written as ? and numbered when the predicate is built.
type Clause struct {
	SQL  string
	Args []interface{}
}

// Predicate folds an ordered list of clauses into one AND-ed filter.
type Predicate struct {
	clauses []Clause
}

// Where starts a predicate from mandatory clauses.
func Where(clauses ...Clause) *Predicate {
	p := &Predicate{}
	for _, c := range clauses {
		p.And(c)
	}
	return p
}

// And appends a clause.
func (p *Predicate) And(c Clause) *Predicate {
	p.clauses = append(p.clauses, c)
	return p
}

// AndIf appends a clause only when ok is true. It pairs with the optional
// clause constructors below, which report whether their input was present.
func (p *Predicate) AndIf(c Clause, ok bool) *Predicate {
	if ok {
		p.And(c)
	}
	return p
}

// Len reports the number of clauses.
func (p *Predicate) Len() int { return len(p.clauses) }

// Clone returns an independent copy so a base scope can be extended twice.
func (p *Predicate) Clone() *Predicate {
	cp := &Predicate{clauses: make([]Clause, len(p.clauses))}
	copy(cp.clauses, p.clauses)
	return cp
}

// Build renders the predicate with placeholders numbered from firstArg.
// It returns the SQL, the args in placeholder order, and the next free index.
func (p *Predicate) Build(firstArg int) (string, []interface{}, int) {
	if len(p.clauses) == 0 {
		return "TRUE", nil, firstArg
	}

	parts := make([]string, 0, len(p.clauses))
	args := make([]interface{}, 0, len(p.clauses))
	next := firstArg
	for _, c := range p.clauses {
		var sb strings.Builder
		argPos := 0
		for _, r := range c.SQL {
			if r == '?' {
				fmt.Fprintf(&sb, "$%d", next)
				args = append(args, c.Args[argPos])
				argPos++
				next++
				continue
			}
			sb.WriteRune(r)
		}
		parts = append(parts, "("+sb.String()+")")
	}
	return strings.Join(parts, " AND "), args, next
}

// TenantScope restricts to one university.
func TenantScope(tenantID uuid.UUID) Clause {
	return Clause{SQL: "l.university_id = ?", Args: []interface{}{tenantID}}
}

// Visible is the active + approved rule every search and discovery read applies.
func Visible() Clause {
	return Clause{
		SQL:  "l.is_active AND l.moderation_status = ?",
		Args: []interface{}{string(domain.ModerationApproved)},
	}
}

// VisibleIn is the scope every read starts from.
func VisibleIn(tenantID uuid.UUID) *Predicate {
	return Where(TenantScope(tenantID), Visible())
}

// CategoryIn matches any of categories. Absent when the set is empty.
func CategoryIn(categories []domain.Category) (Clause, bool) {
	if len(categories) == 0 {
		return Clause{}, false
	}
	values := make([]string, len(categories))
	for i, c := range categories {
		values[i] = string(c)
	}
	return Clause{SQL: "l.category = ANY(?)", Args: []interface{}{values}}, true
}

// CategoryEquals matches a single category.
func CategoryEquals(category domain.Category) Clause {
	return Clause{SQL: "l.category = ?", Args: []interface{}{string(category)}}
}

// ConditionIn matches any of conditions. Absent when the set is empty.
func ConditionIn(conditions []domain.Condition) (Clause, bool) {
	if len(conditions) == 0 {
		return Clause{}, false
	}
	values := make([]string, len(conditions))
	for i, c := range conditions {
		values[i] = string(c)
	}
	return Clause{SQL: "l.condition = ANY(?)", Args: []interface{}{values}}, true
}

// PriceAtLeast is an inclusive lower bound in cents.
func PriceAtLeast(minCents *int64) (Clause, bool) {
	if minCents == nil {
		return Clause{}, false
	}
	return Clause{SQL: "l.price_cents >= ?", Args: []interface{}{*minCents}}, true
}

// PriceAtMost is an inclusive upper bound in cents.
func PriceAtMost(maxCents *int64) (Clause, bool) {
	if maxCents == nil {
		return Clause{}, false
	}
	return Clause{SQL: "l.price_cents <= ?", Args: []interface{}{*maxCents}}, true
}

// LocationContains is a case-insensitive substring match on the pickup location.
func LocationContains(location string) (Clause, bool) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Clause{}, false
	}
	return Clause{SQL: "l.pickup_location ILIKE ?", Args: []interface{}{"%" + EscapeLike(location) + "%"}}, true
}

// CreatedSince keeps listings created at or after from.
func CreatedSince(from *time.Time) (Clause, bool) {
	if from == nil {
		return Clause{}, false
	}
	return Clause{SQL: "l.created_at >= ?", Args: []interface{}{*from}}, true
}

// ExcludeID drops one listing.
func ExcludeID(id uuid.UUID) Clause {
	return Clause{SQL: "l.id <> ?", Args: []interface{}{id}}
}

// IDIn keeps only the given listings.
func IDIn(ids []uuid.UUID) Clause {
	return Clause{SQL: "l.id = ANY(?)", Args: []interface{}{ids}}
}

// FullTextMatch matches the generated search vector.
func FullTextMatch(query string) Clause {
	return Clause{SQL: "l.search_vector @@ websearch_to_tsquery('english', ?)", Args: []interface{}{query}}
}

// FuzzyMatch tolerates misspellings through trigram similarity on the title,
// falling back to a substring hit in the description.
func FuzzyMatch(query string, threshold float64) Clause {
	return Clause{
		SQL:  "similarity(l.title, ?) >= ? OR l.description ILIKE ?",
		Args: []interface{}{query, threshold, "%" + EscapeLike(query) + "%"},
	}
}

// Filters are the optional attribute filters of a search request.
type Filters struct {
	Categories    []domain.Category
	Conditions    []domain.Condition
	MinPriceCents *int64
	MaxPriceCents *int64
	Location      string
	CreatedFrom   *time.Time
}

// HasAny reports whether at least one optional filter is present.
func (f Filters) HasAny() bool {
	return len(f.Categories) > 0 ||
		len(f.Conditions) > 0 ||
		f.MinPriceCents != nil ||
		f.MaxPriceCents != nil ||
		strings.TrimSpace(f.Location) != "" ||
		f.CreatedFrom != nil
}

// Apply appends every present filter to p in a fixed order.
func (f Filters) Apply(p *Predicate) *Predicate {
	p.AndIf(CategoryIn(f.Categories))
	p.AndIf(ConditionIn(f.Conditions))
	p.AndIf(PriceAtLeast(f.MinPriceCents))
	p.AndIf(PriceAtMost(f.MaxPriceCents))
	p.AndIf(LocationContains(f.Location))
	p.AndIf(CreatedSince(f.CreatedFrom))
	return p
}

// EscapeLike escapes LIKE wildcards so value matches literally.
func EscapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
