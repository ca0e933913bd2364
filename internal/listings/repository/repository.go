package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus_marketplace/internal/listings/domain"
	"campus_marketplace/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listingNotFoundMessage = "listing not found"

// ListingColumns is the select list for a listing aliased as l. ScanListing
// reads rows in this order.
const ListingColumns = `l.id, l.university_id, l.seller_id, l.seller_username, l.title, l.description,
	l.price_cents, l.category, l.condition, l.pickup_location, l.is_active, l.moderation_status,
	l.view_count, l.favorite_count, l.negotiable, l.quantity, l.image_urls, l.created_at`

const trendingOrder = "l.view_count DESC, l.favorite_count DESC, l.created_at DESC, l.id ASC"

const recencyOrder = "l.created_at DESC, l.id ASC"

var sortColumns = map[domain.SortField]string{
	domain.SortFieldPrice:         "l.price_cents",
	domain.SortFieldCreatedAt:     "l.created_at",
	domain.SortFieldViewCount:     "l.view_count",
	domain.SortFieldFavoriteCount: "l.favorite_count",
	domain.SortFieldID:            "l.id",
}

const titleSuggestionsQuery = `
	SELECT l.title
	FROM listings l
	WHERE l.university_id = $1
		AND l.is_active AND l.moderation_status = 'APPROVED'
		AND l.title ILIKE $2
	GROUP BY l.title
	ORDER BY MAX(l.view_count) DESC, l.title ASC
	LIMIT $3`

const tenantsWithVisibleListingsQuery = `
	SELECT DISTINCT l.university_id
	FROM listings l
	WHERE l.is_active AND l.moderation_status = 'APPROVED'`

// Repo implements the listing repository on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new listing repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Row is satisfied by pgx.Row and pgx.Rows.
type Row interface {
	Scan(dest ...interface{}) error
}

// ScanListing reads ListingColumns, optionally followed by extra destinations.
func ScanListing(row Row, extra ...interface{}) (domain.Listing, error) {
	var l domain.Listing
	var category, condition, moderation string
	dest := []interface{}{
		&l.ID, &l.UniversityID, &l.SellerID, &l.SellerUsername, &l.Title, &l.Description,
		&l.PriceCents, &category, &condition, &l.PickupLocation, &l.IsActive, &moderation,
		&l.ViewCount, &l.FavoriteCount, &l.Negotiable, &l.Quantity, &l.ImageURLs, &l.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Listing{}, err
	}
	l.Category = domain.Category(category)
	l.Condition = domain.Condition(condition)
	l.ModerationStatus = domain.ModerationStatus(moderation)
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}
	return l, nil
}

// CollectListings drains rows through ScanListing.
func CollectListings(rows pgx.Rows, op string) ([]domain.Listing, error) {
	defer rows.Close()
	items := make([]domain.Listing, 0)
	for rows.Next() {
		l, err := ScanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", op, err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return items, nil
}

// OrderBy renders terms as an ORDER BY list. Unknown fields are skipped and an
// empty result falls back to recency.
func OrderBy(terms []domain.OrderTerm) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		column, ok := sortColumns[t.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		parts = append(parts, column+" "+dir)
	}
	if len(parts) == 0 {
		return recencyOrder
	}
	return strings.Join(parts, ", ")
}

// buildWhere combines q.Where with the text clause.
func buildWhere(q Query) (string, []interface{}, int) {
	pred := Where()
	if q.Where != nil {
		pred = q.Where.Clone()
	}

	switch q.Text.Mode {
	case TextFullText:
		pred.And(FullTextMatch(q.Text.Query))
	case TextFuzzy:
		pred.And(FuzzyMatch(q.Text.Query, q.Text.Threshold))
	}

	return pred.Build(1)
}

// rankExpr returns the relevance expression for the text mode, bound at
// placeholder next. Filter-only reads carry no score.
func rankExpr(text TextMatch, next int) (string, []interface{}) {
	switch text.Mode {
	case TextFullText:
		return fmt.Sprintf("ts_rank(l.search_vector, websearch_to_tsquery('english', $%d))", next), []interface{}{text.Query}
	case TextFuzzy:
		return fmt.Sprintf("similarity(l.title, $%d)", next), []interface{}{text.Query}
	default:
		return "NULL::real", nil
	}
}

// Find executes a filtered, ordered, paginated read.
func (r *Repo) Find(ctx context.Context, q Query) (Result, error) {
	where, args, next := buildWhere(q)

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM listings l WHERE %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return Result{}, fmt.Errorf("count listings: %w", err)
	}
	if total == 0 || int64(q.Offset) >= total {
		return Result{Items: []domain.Listing{}, Total: total}, nil
	}

	rank, rankArgs := rankExpr(q.Text, next)
	next += len(rankArgs)
	args = append(args, rankArgs...)
	args = append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(`
		SELECT %s, %s AS relevance
		FROM listings l
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, ListingColumns, rank, where, OrderBy(q.Order), next, next+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("find listings: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Listing, 0, q.Limit)
	for rows.Next() {
		var relevance *float32
		l, err := ScanListing(rows, &relevance)
		if err != nil {
			return Result{}, fmt.Errorf("scan listing: %w", err)
		}
		l.Relevance = relevance
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate listings: %w", err)
	}

	return Result{Items: items, Total: total}, nil
}

// Exists reports whether any listing matches q's predicate and text clause.
func (r *Repo) Exists(ctx context.Context, q Query) (bool, error) {
	where, args, _ := buildWhere(q)

	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM listings l WHERE %s)", where)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("listing exists: %w", err)
	}
	return exists, nil
}

// GetVisibleByID returns a visible listing in tenantID or a not-found error.
func (r *Repo) GetVisibleByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Listing, error) {
	where, args, _ := VisibleIn(tenantID).And(IDIn([]uuid.UUID{id})).Build(1)
	query := fmt.Sprintf("SELECT %s FROM listings l WHERE %s", ListingColumns, where)

	l, err := ScanListing(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, apperr.NotFound(listingNotFoundMessage)
		}
		return domain.Listing{}, fmt.Errorf("get listing by id: %w", err)
	}
	return l, nil
}

// ListVisibleByIDs returns the visible subset of ids, unordered.
func (r *Repo) ListVisibleByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]domain.Listing, error) {
	if len(ids) == 0 {
		return []domain.Listing{}, nil
	}
	where, args, _ := VisibleIn(tenantID).And(IDIn(ids)).Build(1)
	query := fmt.Sprintf("SELECT %s FROM listings l WHERE %s", ListingColumns, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings by ids: %w", err)
	}
	return CollectListings(rows, "listings by ids")
}

// ListByCategory returns the most recent visible listings in one category.
func (r *Repo) ListByCategory(ctx context.Context, tenantID uuid.UUID, category domain.Category, exclude *uuid.UUID, limit int) ([]domain.Listing, error) {
	pred := VisibleIn(tenantID).And(CategoryEquals(category))
	if exclude != nil {
		pred.And(ExcludeID(*exclude))
	}
	where, args, next := pred.Build(1)
	args = append(args, limit)
	query := fmt.Sprintf("SELECT %s FROM listings l WHERE %s ORDER BY %s LIMIT $%d",
		ListingColumns, where, recencyOrder, next)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings by category: %w", err)
	}
	return CollectListings(rows, "listings by category")
}

// Trending returns the most viewed visible listings in tenantID.
func (r *Repo) Trending(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.Listing, error) {
	where, args, next := VisibleIn(tenantID).Build(1)
	args = append(args, limit)
	query := fmt.Sprintf("SELECT %s FROM listings l WHERE %s ORDER BY %s LIMIT $%d",
		ListingColumns, where, trendingOrder, next)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trending listings: %w", err)
	}
	return CollectListings(rows, "trending listings")
}

// TitleSuggestions returns distinct visible titles starting with prefix.
func (r *Repo) TitleSuggestions(ctx context.Context, tenantID uuid.UUID, prefix string, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, titleSuggestionsQuery, tenantID, EscapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("title suggestions: %w", err)
	}
	defer rows.Close()

	titles := make([]string, 0, limit)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title suggestion: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate title suggestions: %w", err)
	}
	return titles, nil
}

// TenantsWithVisibleListings lists universities that have something to show.
func (r *Repo) TenantsWithVisibleListings(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, tenantsWithVisibleListingsQuery)
	if err != nil {
		return nil, fmt.Errorf("tenants with listings: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenant ids: %w", err)
	}
	return ids, nil
}
