// Package service is the search history store: fire-and-forget recording and
// the recent and popular query reads behind history and autocomplete.
package service

import (
	"context"
	"fmt"
	"time"

	"campus_marketplace/internal/scheduler"
	"campus_marketplace/internal/searchhistory/repository"
	"campus_marketplace/platform/logger"
	"campus_marketplace/platform/sanitize"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	DefaultLimit  = 10
	MaxLimit      = 50
	PopularWindow = 30 * 24 * time.Hour

	// maxQueryRunes bounds stored queries; they are echoed back to other
	// users through autocomplete.
	maxQueryRunes = 200
)

// TaskDispatcher is satisfied by *scheduler.Dispatcher.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, task *asynq.Task) bool
}

type Store struct {
	repo       repository.Repository
	dispatcher TaskDispatcher
	log        *logger.Logger
	now        func() time.Time
}

func New(repo repository.Repository, dispatcher TaskDispatcher, log *logger.Logger) *Store {
	return &Store{repo: repo, dispatcher: dispatcher, log: log, now: time.Now}
}

// Record schedules a history entry. Blank queries are dropped.
func (s *Store) Record(ctx context.Context, userID uuid.UUID, query string, resultCount int) {
	query = sanitize.Query(query, maxQueryRunes)
	if query == "" || s.dispatcher == nil {
		return
	}

	task, err := scheduler.NewRecordSearchTask(scheduler.RecordSearchPayload{
		UserID:      userID.String(),
		Query:       query,
		ResultCount: resultCount,
		SearchedAt:  s.now().UTC(),
	})
	if err != nil {
		s.log.BackgroundTaskFailed(scheduler.TaskRecordSearch, err)
		return
	}
	s.dispatcher.Dispatch(ctx, task)
}

// Apply writes one entry. Entries are never deduplicated.
func (s *Store) Apply(ctx context.Context, userID uuid.UUID, query string, resultCount int, searchedAt time.Time) error {
	query = sanitize.Query(query, maxQueryRunes)
	if query == "" {
		return nil
	}
	if searchedAt.IsZero() {
		searchedAt = s.now()
	}
	if err := s.repo.Insert(ctx, userID, query, resultCount, searchedAt.UTC()); err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// RecentSearches returns the user's distinct queries, latest first. Failures
// degrade to an empty list.
func (s *Store) RecentSearches(ctx context.Context, userID uuid.UUID, limit int) []string {
	out, err := s.repo.RecentDistinct(ctx, userID, clampLimit(limit))
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("searchhistory.RecentSearches", err)
		return []string{}
	}
	return out
}

// PopularSearches ranks queries by frequency over the trailing window, ties
// by latest use. Failures degrade to an empty list.
func (s *Store) PopularSearches(ctx context.Context, limit int) []string {
	out, err := s.repo.Popular(ctx, s.now().Add(-PopularWindow), clampLimit(limit))
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("searchhistory.PopularSearches", err)
		return []string{}
	}
	return out
}

// PopularWithPrefix is PopularSearches restricted to queries starting with
// prefix, for autocomplete.
func (s *Store) PopularWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.repo.PopularWithPrefix(ctx, prefix, s.now().Add(-PopularWindow), clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
