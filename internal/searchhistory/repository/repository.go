package repository

import (
	"context"
	"fmt"
	"time"

	listingsrepo "campus_marketplace/internal/listings/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the per-user search history store.
type Repository interface {
	Insert(ctx context.Context, userID uuid.UUID, query string, resultCount int, searchedAt time.Time) error
	RecentDistinct(ctx context.Context, userID uuid.UUID, limit int) ([]string, error)
	Popular(ctx context.Context, since time.Time, limit int) ([]string, error)
	PopularWithPrefix(ctx context.Context, prefix string, since time.Time, limit int) ([]string, error)
}

const insertQuery = `
	INSERT INTO search_history (user_id, search_query, result_count, created_at)
	VALUES ($1, $2, $3, $4)`

const recentDistinctQuery = `
	SELECT search_query
	FROM search_history
	WHERE user_id = $1
	GROUP BY search_query
	ORDER BY MAX(created_at) DESC
	LIMIT $2`

const popularQuery = `
	SELECT search_query
	FROM search_history
	WHERE created_at > $1
	GROUP BY search_query
	ORDER BY COUNT(*) DESC, MAX(created_at) DESC
	LIMIT $2`

const popularWithPrefixQuery = `
	SELECT search_query
	FROM search_history
	WHERE created_at > $1
		AND search_query ILIKE $2
	GROUP BY search_query
	ORDER BY COUNT(*) DESC, MAX(created_at) DESC
	LIMIT $3`

// Repo implements Repository on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new search history repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func (r *Repo) Insert(ctx context.Context, userID uuid.UUID, query string, resultCount int, searchedAt time.Time) error {
	if _, err := r.pool.Exec(ctx, insertQuery, userID, query, resultCount, searchedAt); err != nil {
		return fmt.Errorf("insert search history: %w", err)
	}
	return nil
}

func (r *Repo) RecentDistinct(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, recentDistinctQuery, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent searches: %w", err)
	}
	return collectQueries(rows, limit)
}

func (r *Repo) Popular(ctx context.Context, since time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, popularQuery, since, limit)
	if err != nil {
		return nil, fmt.Errorf("popular searches: %w", err)
	}
	return collectQueries(rows, limit)
}

func (r *Repo) PopularWithPrefix(ctx context.Context, prefix string, since time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, popularWithPrefixQuery, since, listingsrepo.EscapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("popular searches by prefix: %w", err)
	}
	return collectQueries(rows, limit)
}

func collectQueries(rows pgx.Rows, limit int) ([]string, error) {
	defer rows.Close()
	out := make([]string, 0, limit)
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan search query: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search queries: %w", err)
	}
	return out, nil
}
