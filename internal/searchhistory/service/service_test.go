package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"campus_marketplace/internal/scheduler"
	"campus_marketplace/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeRepo struct {
	inserted    []string
	since       time.Time
	limit       int
	err         error
	recentUsers []uuid.UUID
}

func (f *fakeRepo) Insert(_ context.Context, _ uuid.UUID, query string, _ int, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, query)
	return nil
}

func (f *fakeRepo) RecentDistinct(_ context.Context, userID uuid.UUID, limit int) ([]string, error) {
	f.recentUsers = append(f.recentUsers, userID)
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []string{"desk", "lamp"}, nil
}

func (f *fakeRepo) Popular(_ context.Context, since time.Time, limit int) ([]string, error) {
	f.since = since
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []string{"calculus"}, nil
}

func (f *fakeRepo) PopularWithPrefix(_ context.Context, _ string, since time.Time, limit int) ([]string, error) {
	f.since = since
	f.limit = limit
	return nil, f.err
}

type capturingDispatcher struct {
	tasks []*asynq.Task
}

func (c *capturingDispatcher) Dispatch(_ context.Context, task *asynq.Task) bool {
	c.tasks = append(c.tasks, task)
	return true
}

func newStore(repo *fakeRepo, d *capturingDispatcher) *Store {
	s := New(repo, d, logger.NewWithHandler(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestRecordDropsBlankQueries(t *testing.T) {
	d := &capturingDispatcher{}
	s := newStore(&fakeRepo{}, d)

	s.Record(context.Background(), uuid.New(), "   ", 0)
	if len(d.tasks) != 0 {
		t.Fatalf("blank query must not be dispatched, got %d tasks", len(d.tasks))
	}

	s.Record(context.Background(), uuid.New(), "  desk lamp ", 3)
	if len(d.tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(d.tasks))
	}
	payload, err := scheduler.ParseRecordSearchPayload(d.tasks[0])
	if err != nil || payload.Query != "desk lamp" || payload.ResultCount != 3 {
		t.Fatalf("unexpected payload %+v %v", payload, err)
	}
}

func TestApplyNeverDeduplicates(t *testing.T) {
	repo := &fakeRepo{}
	s := newStore(repo, &capturingDispatcher{})
	user := uuid.New()

	for i := 0; i < 2; i++ {
		if err := s.Apply(context.Background(), user, "desk", 1, time.Time{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(repo.inserted) != 2 {
		t.Fatalf("expected two entries, got %d", len(repo.inserted))
	}
}

func TestPopularUsesThirtyDayWindow(t *testing.T) {
	repo := &fakeRepo{}
	s := newStore(repo, &capturingDispatcher{})

	got := s.PopularSearches(context.Background(), 0)
	if len(got) != 1 || got[0] != "calculus" {
		t.Fatalf("unexpected popular searches %v", got)
	}
	if want := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC); !repo.since.Equal(want) {
		t.Fatalf("expected window start %v, got %v", want, repo.since)
	}
	if repo.limit != DefaultLimit {
		t.Fatalf("expected default limit, got %d", repo.limit)
	}
}

func TestReadsDegradeToEmpty(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	s := newStore(repo, &capturingDispatcher{})

	if got := s.RecentSearches(context.Background(), uuid.New(), 500); got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
	if repo.limit != MaxLimit {
		t.Fatalf("expected clamped limit, got %d", repo.limit)
	}
	if got := s.PopularSearches(context.Background(), 5); got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

func TestReadFailuresAreLoggedAsDatabaseErrors(t *testing.T) {
	var buf bytes.Buffer
	s := New(&fakeRepo{err: errors.New("db down")}, &capturingDispatcher{}, logger.NewWithHandler(slog.NewTextHandler(&buf, nil)))

	s.RecentSearches(context.Background(), uuid.New(), 5)
	s.PopularSearches(context.Background(), 5)

	out := buf.String()
	for _, op := range []string{"searchhistory.RecentSearches", "searchhistory.PopularSearches"} {
		if !strings.Contains(out, "operation="+op) {
			t.Fatalf("missing database error for %s in %q", op, out)
		}
	}
	if strings.Count(out, "database_error") != 2 {
		t.Fatalf("expected two database error entries, got %q", out)
	}
}

func TestRecordStripsMarkup(t *testing.T) {
	d := &capturingDispatcher{}
	s := newStore(&fakeRepo{}, d)

	s.Record(context.Background(), uuid.New(), "<b>mini</b>   fridge", 1)
	s.Record(context.Background(), uuid.New(), "<img src=x>", 0)
	if len(d.tasks) != 1 {
		t.Fatalf("expected markup-only query to be dropped, got %d tasks", len(d.tasks))
	}
	payload, err := scheduler.ParseRecordSearchPayload(d.tasks[0])
	if err != nil || payload.Query != "mini fridge" {
		t.Fatalf("unexpected payload %+v %v", payload, err)
	}
}
