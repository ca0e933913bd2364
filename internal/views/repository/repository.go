package repository

import (
	"context"
	"fmt"
	"time"

	"campus_marketplace/internal/listings/domain"
	listingsrepo "campus_marketplace/internal/listings/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the per-user view history store.
type Repository interface {
	// UpsertView records a view for the UTC calendar day of viewedAt and
	// reports whether it was the first view of that day.
	UpsertView(ctx context.Context, userID, productID uuid.UUID, viewedAt time.Time) (bool, error)
	RecentlyViewed(ctx context.Context, userID, tenantID uuid.UUID, limit int) ([]domain.Listing, error)
	ViewedTogether(ctx context.Context, tenantID, productID uuid.UUID, window time.Duration, limit int) ([]uuid.UUID, error)
}

const upsertViewQuery = `
	INSERT INTO product_views (user_id, product_id, viewed_at, viewed_at_date)
	VALUES ($1, $2, $3, ($3::timestamptz AT TIME ZONE 'UTC')::date)
	ON CONFLICT (user_id, product_id, viewed_at_date)
	DO UPDATE SET viewed_at = GREATEST(product_views.viewed_at, EXCLUDED.viewed_at)
	RETURNING (xmax = 0) AS inserted`

const incrementViewCountQuery = `UPDATE listings SET view_count = view_count + 1 WHERE id = $1`

const recentlyViewedQuery = `
	SELECT ` + listingsrepo.ListingColumns + `
	FROM listings l
	JOIN (
		SELECT pv.product_id, MAX(pv.viewed_at) AS last_viewed_at
		FROM product_views pv
		WHERE pv.user_id = $1
		GROUP BY pv.product_id
	) v ON v.product_id = l.id
	WHERE l.university_id = $2
		AND l.is_active AND l.moderation_status = 'APPROVED'
	ORDER BY v.last_viewed_at DESC, l.id ASC
	LIMIT $3`

const viewedTogetherQuery = `
	SELECT other.product_id
	FROM product_views target
	JOIN product_views other
		ON other.user_id = target.user_id
		AND other.product_id <> target.product_id
		AND other.viewed_at BETWEEN target.viewed_at - make_interval(secs => $3)
			AND target.viewed_at + make_interval(secs => $3)
	JOIN listings l ON l.id = other.product_id
	WHERE target.product_id = $1
		AND l.university_id = $2
		AND l.is_active AND l.moderation_status = 'APPROVED'
	GROUP BY other.product_id
	ORDER BY COUNT(*) DESC, other.product_id ASC
	LIMIT $4`

// Repo implements Repository on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new view history repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// UpsertView writes the day row and bumps the listing counter in one
// transaction. The counter moves only when the row was inserted, so repeated
// and concurrent views on one day count once.
func (r *Repo) UpsertView(ctx context.Context, userID, productID uuid.UUID, viewedAt time.Time) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin view upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var inserted bool
	if err := tx.QueryRow(ctx, upsertViewQuery, userID, productID, viewedAt.UTC()).Scan(&inserted); err != nil {
		return false, fmt.Errorf("upsert product view: %w", err)
	}

	if inserted {
		if _, err := tx.Exec(ctx, incrementViewCountQuery, productID); err != nil {
			return false, fmt.Errorf("increment view count: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit view upsert: %w", err)
	}
	return inserted, nil
}

// RecentlyViewed returns the user's distinct viewed listings, latest view first.
func (r *Repo) RecentlyViewed(ctx context.Context, userID, tenantID uuid.UUID, limit int) ([]domain.Listing, error) {
	rows, err := r.pool.Query(ctx, recentlyViewedQuery, userID, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("recently viewed: %w", err)
	}
	return listingsrepo.CollectListings(rows, "recently viewed")
}

// ViewedTogether ranks listings that the viewers of productID also viewed
// within window of that view.
func (r *Repo) ViewedTogether(ctx context.Context, tenantID, productID uuid.UUID, window time.Duration, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, viewedTogetherQuery, productID, tenantID, window.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("viewed together: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan viewed together: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate viewed together: %w", err)
	}
	return ids, nil
}
