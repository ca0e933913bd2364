package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"campus_marketplace/internal/listings/domain"
	"campus_marketplace/internal/scheduler"
	"campus_marketplace/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type viewKey struct {
	user, product uuid.UUID
	day           string
}

// memoryViews mirrors the per-day upsert of the SQL repository.
type memoryViews struct {
	mu        sync.Mutex
	rows      map[viewKey]time.Time
	viewCount map[uuid.UUID]int
	err       error
}

func newMemoryViews() *memoryViews {
	return &memoryViews{rows: map[viewKey]time.Time{}, viewCount: map[uuid.UUID]int{}}
}

func (m *memoryViews) UpsertView(_ context.Context, userID, productID uuid.UUID, viewedAt time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := viewKey{userID, productID, viewedAt.UTC().Format(time.DateOnly)}
	existing, ok := m.rows[key]
	if ok {
		if viewedAt.After(existing) {
			m.rows[key] = viewedAt
		}
		return false, nil
	}
	m.rows[key] = viewedAt
	m.viewCount[productID]++
	return true, nil
}

func (m *memoryViews) RecentlyViewed(context.Context, uuid.UUID, uuid.UUID, int) ([]domain.Listing, error) {
	return nil, nil
}

func (m *memoryViews) ViewedTogether(context.Context, uuid.UUID, uuid.UUID, time.Duration, int) ([]uuid.UUID, error) {
	return nil, nil
}

type capturingDispatcher struct {
	tasks []*asynq.Task
}

func (c *capturingDispatcher) Dispatch(_ context.Context, task *asynq.Task) bool {
	c.tasks = append(c.tasks, task)
	return true
}

func testLogger() *logger.Logger {
	return logger.NewWithHandler(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordViewOnlyDispatches(t *testing.T) {
	repo := newMemoryViews()
	dispatcher := &capturingDispatcher{}
	tracker := New(repo, dispatcher, testLogger())
	fixed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	user, product := uuid.New(), uuid.New()
	tracker.RecordView(context.Background(), user, product)

	if len(repo.rows) != 0 {
		t.Fatal("RecordView must not write synchronously")
	}
	if len(dispatcher.tasks) != 1 || dispatcher.tasks[0].Type() != scheduler.TaskRecordView {
		t.Fatalf("expected one view task, got %d", len(dispatcher.tasks))
	}

	payload, err := scheduler.ParseRecordViewPayload(dispatcher.tasks[0])
	if err != nil {
		t.Fatalf("unexpected payload error: %v", err)
	}
	if payload.ProductID != product.String() || !payload.ViewedAt.Equal(fixed) {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTwoViewsSameDayCountOnce(t *testing.T) {
	repo := newMemoryViews()
	tracker := New(repo, &capturingDispatcher{}, testLogger())
	user, product := uuid.New(), uuid.New()

	first := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	for _, at := range []time.Time{first, second} {
		if err := tracker.Apply(context.Background(), user, product, at); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(repo.rows) != 1 {
		t.Fatalf("expected one view row, got %d", len(repo.rows))
	}
	for _, viewedAt := range repo.rows {
		if !viewedAt.Equal(second) {
			t.Fatalf("expected viewedAt %v, got %v", second, viewedAt)
		}
	}
	if repo.viewCount[product] != 1 {
		t.Fatalf("expected view count 1, got %d", repo.viewCount[product])
	}
}

func TestViewsOnNextDayCountAgain(t *testing.T) {
	repo := newMemoryViews()
	tracker := New(repo, &capturingDispatcher{}, testLogger())
	user, product := uuid.New(), uuid.New()

	late := time.Date(2026, 6, 1, 23, 59, 0, 0, time.UTC)
	if err := tracker.Apply(context.Background(), user, product, late); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracker.Apply(context.Background(), user, product, late.Add(2*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.viewCount[product] != 2 {
		t.Fatalf("expected a new count on the next UTC day, got %d", repo.viewCount[product])
	}
}

func TestApplyWrapsStoreErrors(t *testing.T) {
	repo := newMemoryViews()
	repo.err = errors.New("deadlock detected")
	tracker := New(repo, &capturingDispatcher{}, testLogger())

	err := tracker.Apply(context.Background(), uuid.New(), uuid.New(), time.Now())
	if !errors.Is(err, repo.err) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
