// Package service records product views and reads view history.
package service

import (
	"context"
	"fmt"
	"time"

	"campus_marketplace/internal/listings/domain"
	"campus_marketplace/internal/scheduler"
	"campus_marketplace/internal/views/repository"
	"campus_marketplace/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskDispatcher is satisfied by *scheduler.Dispatcher.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, task *asynq.Task) bool
}

// Tracker is the ViewTracker. RecordView runs in the request path and only
// hands work off; Apply runs in the worker and touches the store.
type Tracker struct {
	repo       repository.Repository
	dispatcher TaskDispatcher
	log        *logger.Logger
	now        func() time.Time
}

func New(repo repository.Repository, dispatcher TaskDispatcher, log *logger.Logger) *Tracker {
	return &Tracker{repo: repo, dispatcher: dispatcher, log: log, now: time.Now}
}

// RecordView schedules a view of productID by userID. It never fails the
// caller; problems are logged.
func (t *Tracker) RecordView(ctx context.Context, userID, productID uuid.UUID) {
	if t.dispatcher == nil {
		return
	}
	task, err := scheduler.NewRecordViewTask(scheduler.RecordViewPayload{
		UserID:    userID.String(),
		ProductID: productID.String(),
		ViewedAt:  t.now().UTC(),
	})
	if err != nil {
		t.log.BackgroundTaskFailed(scheduler.TaskRecordView, err)
		return
	}
	t.dispatcher.Dispatch(ctx, task)
}

// Apply stores a view. The first view of a UTC day increments the listing's
// view count; later views that day only move the timestamp.
func (t *Tracker) Apply(ctx context.Context, userID, productID uuid.UUID, viewedAt time.Time) error {
	if viewedAt.IsZero() {
		viewedAt = t.now()
	}
	inserted, err := t.repo.UpsertView(ctx, userID, productID, viewedAt.UTC())
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	t.log.Debug("product view recorded", "productId", productID, "firstToday", inserted)
	return nil
}

// RecentlyViewed returns the user's latest distinct visible products.
func (t *Tracker) RecentlyViewed(ctx context.Context, userID, tenantID uuid.UUID, limit int) ([]domain.Listing, error) {
	return t.repo.RecentlyViewed(ctx, userID, tenantID, limit)
}

// ViewedTogether returns product ids co-viewed with productID within window.
func (t *Tracker) ViewedTogether(ctx context.Context, tenantID, productID uuid.UUID, window time.Duration, limit int) ([]uuid.UUID, error) {
	return t.repo.ViewedTogether(ctx, tenantID, productID, window, limit)
}
