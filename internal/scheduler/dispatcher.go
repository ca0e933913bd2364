package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"campus_marketplace/platform/logger"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxInFlight     = 100
	defaultDispatchTimeout = 5 * time.Second
)

// ErrDispatchSaturated is logged when work is dropped because too many
// enqueues are already in flight.
var ErrDispatchSaturated = errors.New("dispatch saturated")

// Enqueuer is satisfied by *Client.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// Dispatcher hands tasks to the queue without blocking the caller. Failures
// are logged and never reach the request that triggered them.
type Dispatcher struct {
	enq     Enqueuer
	sem     *semaphore.Weighted
	timeout time.Duration
	wg      sync.WaitGroup
	log     *logger.Logger
}

func NewDispatcher(enq Enqueuer, maxInFlight int, log *logger.Logger) *Dispatcher {
	if maxInFlight < 1 {
		maxInFlight = defaultMaxInFlight
	}
	return &Dispatcher{
		enq:     enq,
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		timeout: defaultDispatchTimeout,
		log:     log,
	}
}

// Dispatch enqueues task in the background and reports whether it was
// accepted. The enqueue outlives ctx's cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, task *asynq.Task) bool {
	if d == nil || d.enq == nil || task == nil {
		return false
	}
	if !d.sem.TryAcquire(1) {
		d.log.BackgroundTaskFailed(task.Type(), ErrDispatchSaturated)
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)

		enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.enq.Enqueue(enqueueCtx, task); err != nil {
			d.log.BackgroundTaskFailed(task.Type(), err)
		}
	}()
	return true
}

// Wait blocks until every accepted task has been handed off.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
