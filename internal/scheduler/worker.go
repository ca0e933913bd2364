package scheduler

import (
	"context"
	"fmt"
	"time"

	"campus_marketplace/platform/config"
	"campus_marketplace/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ViewApplier persists one product view.
type ViewApplier interface {
	Apply(ctx context.Context, userID, productID uuid.UUID, viewedAt time.Time) error
}

// SearchApplier persists one executed search.
type SearchApplier interface {
	Apply(ctx context.Context, userID uuid.UUID, query string, resultCount int, searchedAt time.Time) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	views   ViewApplier
	history SearchApplier
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, views ViewApplier, history SearchApplier, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server:  server,
		views:   views,
		history: history,
		log:     log,
	}
	w.mux = w.routes()

	return w, nil
}

func (w *Worker) routes() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRecordView, w.handleRecordView)
	mux.HandleFunc(TaskRecordSearch, w.handleRecordSearch)
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleRecordView(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRecordViewPayload(task)
	if err != nil {
		return w.fail(task, err)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return w.fail(task, err)
	}

	productID, err := uuid.Parse(payload.ProductID)
	if err != nil {
		return w.fail(task, err)
	}

	if err := w.views.Apply(ctx, userID, productID, payload.ViewedAt); err != nil {
		return w.fail(task, err)
	}
	return nil
}

func (w *Worker) handleRecordSearch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRecordSearchPayload(task)
	if err != nil {
		return w.fail(task, err)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return w.fail(task, err)
	}

	if err := w.history.Apply(ctx, userID, payload.Query, payload.ResultCount, payload.SearchedAt); err != nil {
		return w.fail(task, err)
	}
	return nil
}

// fail logs and archives the task; background writes are not retried.
func (w *Worker) fail(task *asynq.Task, err error) error {
	w.log.BackgroundTaskFailed(task.Type(), err)
	return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
}
