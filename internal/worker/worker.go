// Package worker drains the task queue on a single goroutine.
//
// Each dequeued task is checked for expiration at that moment; expired tasks
// are dropped and the rest run synchronously, one after another, in queue
// order. A panicking payload is not isolated: it terminates the worker and
// keeps unwinding into the goroutine that called Run.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	errs "github.com/ttn-nguyen42/deferq/internal/errors"
	"github.com/ttn-nguyen42/deferq/internal/metrics"
	"github.com/ttn-nguyen42/deferq/internal/queue"
	"github.com/ttn-nguyen42/deferq/internal/state"
	"github.com/ttn-nguyen42/deferq/internal/task"
)

type State int32

const (
	StateWaiting State = iota
	StateExecuting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateExecuting:
		return "executing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Options struct {
	Logger *slog.Logger

	// Store, when set, receives the outcome of every dequeued task.
	Store state.Store

	Metrics *metrics.Metrics
}

type Worker struct {
	logger *slog.Logger
	st     state.Store
	mt     *metrics.Metrics

	rx *queue.Receiver[*task.Task]

	started atomic.Bool
	state   atomic.Int32
}

func New(rx *queue.Receiver[*task.Task], opts *Options) *Worker {
	o := defaultOpts(opts)

	return &Worker{
		logger: o.Logger,
		st:     o.Store,
		mt:     o.Metrics,
		rx:     rx,
	}
}

func defaultOpts(opts *Options) *Options {
	o := &Options{
		Logger: slog.Default(),
	}
	if opts == nil {
		return o
	}
	if opts.Logger != nil {
		o.Logger = opts.Logger
	}
	o.Store = opts.Store
	o.Metrics = opts.Metrics

	return o
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}

// Run consumes tasks until every producer handle is closed and the queue is
// drained (returns nil) or ctx is done (returns ctx.Err()). It can be called
// once. The read-end is closed when Run returns, so later sends fail.
func (w *Worker) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("worker: %w", errs.ErrAlreadyStarted)
	}

	defer w.rx.Close()

	w.logger.Info("worker started")

	for {
		t, err := w.rx.RecvContext(ctx)
		if errors.Is(err, errs.ErrEndOfStream) {
			w.setState(StateTerminated)
			w.logger.Info("all producers are gone, worker stopped")
			return nil
		}
		if err != nil {
			w.setState(StateTerminated)
			w.logger.
				With("err", err).
				Info("worker interrupted")
			return err
		}

		w.handle(t)
	}
}

func (w *Worker) handle(t *task.Task) {
	if t.Ran() {
		w.logger.
			With("task_id", t.ID()).
			With("task_name", t.Name()).
			Warn("task has already run, skipping")
		return
	}

	w.mt.TaskDequeued(time.Since(t.CreatedAt()))

	if t.HasExpired() {
		w.discard(t)
		return
	}

	w.execute(t)
}

func (w *Worker) discard(t *task.Task) {
	expiresAt, _ := t.ExpiresAt()

	w.logger.
		With("task_id", t.ID()).
		With("task_name", t.Name()).
		With("expired_at", expiresAt).
		Debug("task expired, discarding")

	w.mt.TaskExpired()
	w.record(t.ID(), func(ti *state.TaskInfo) bool {
		ti.Status = state.TaskStatusExpired
		ti.CompletedAt = time.Now()
		return true
	})
}

func (w *Worker) execute(t *task.Task) {
	w.setState(StateExecuting)

	startedAt := time.Now()
	w.record(t.ID(), func(ti *state.TaskInfo) bool {
		ti.Status = state.TaskStatusRunning
		ti.StartedAt = startedAt
		return true
	})

	w.logger.
		With("task_id", t.ID()).
		With("task_name", t.Name()).
		Debug("running task")

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		elapsed := time.Since(startedAt)
		w.setState(StateTerminated)
		w.mt.TaskFailed(elapsed)
		w.record(t.ID(), func(ti *state.TaskInfo) bool {
			ti.Status = state.TaskStatusFailed
			ti.Reason = fmt.Sprint(r)
			ti.CompletedAt = time.Now()
			return true
		})

		w.logger.
			With("task_id", t.ID()).
			With("task_name", t.Name()).
			With("panic", r).
			With("stack", string(debug.Stack())).
			Error("task panicked, worker is terminating")

		panic(r)
	}()

	t.Run()

	elapsed := time.Since(startedAt)
	w.mt.TaskExecuted(elapsed)
	w.record(t.ID(), func(ti *state.TaskInfo) bool {
		ti.Status = state.TaskStatusComplete
		ti.CompletedAt = time.Now()
		return true
	})

	w.logger.
		With("task_id", t.ID()).
		With("took", elapsed).
		Debug("task completed")

	w.setState(StateWaiting)
}

// record applies upd to the journal entry of the task. Journal errors are
// logged and never stop the worker.
func (w *Worker) record(id string, upd func(*state.TaskInfo) bool) {
	if w.st == nil {
		return
	}

	found, err := w.st.UpdateInfo(id, upd)
	if err != nil {
		w.logger.
			With("task_id", id).
			With("err", err).
			Warn("failed to update task info")
		return
	}
	if !found {
		w.logger.
			With("task_id", id).
			Debug("task not journaled, skipping update")
	}
}
