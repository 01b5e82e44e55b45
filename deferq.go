// Package deferq runs a deferred-task executor: any number of producers submit
// tasks with an optional expiration deadline, and a single worker runs them in
// submission order unless they expired before being dequeued.
package deferq

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ttn-nguyen42/deferq/internal/broker"
	"github.com/ttn-nguyen42/deferq/internal/jobs"
	"github.com/ttn-nguyen42/deferq/internal/metrics"
	"github.com/ttn-nguyen42/deferq/internal/queue"
	"github.com/ttn-nguyen42/deferq/internal/server"
	"github.com/ttn-nguyen42/deferq/internal/state"
	"github.com/ttn-nguyen42/deferq/internal/task"
	"github.com/ttn-nguyen42/deferq/internal/utils"
	"github.com/ttn-nguyen42/deferq/internal/worker"
)

type Deferq struct {
	opts *Options

	stop     chan utils.Empty
	stopOnce sync.Once

	logger *slog.Logger

	st   state.Store
	mt   *metrics.Metrics
	br   broker.Broker
	wk   *worker.Worker
	jobs *jobs.Registry

	hs *server.Server
}

func New(opts *Options) (*Deferq, error) {
	o := DefaultOptions(opts)

	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(
			os.Stdout,
			&slog.HandlerOptions{
				Level: o.LogLevel,
			},
		))
	}

	dq := &Deferq{
		opts:   o,
		logger: logger,
		stop:   make(chan utils.Empty, 1),
	}
	if err := dq.init(); err != nil {
		dq.logger.
			With("err", err).
			Error("failed to initialize deferq")
		return nil, err
	}

	return dq, nil
}

func (d *Deferq) init() error {
	if !d.opts.DisableJournal {
		if err := d.mkdir(d.opts.StatePath); err != nil {
			return err
		}

		st, err := state.NewStore(&state.StoreOpts{
			Logger: d.logger,
			Path:   d.opts.StatePath,
		})
		if err != nil {
			return fmt.Errorf("failed to create state store: %w", err)
		}
		d.st = st

		if err := d.pruneJournal(); err != nil {
			return err
		}
	}

	d.mt = metrics.New(metrics.DefaultNamespace)

	tx, rx := queue.New[*task.Task]()
	if err := d.mt.RegisterQueueDepth(metrics.DefaultNamespace, func() float64 {
		return float64(rx.Len())
	}); err != nil {
		return fmt.Errorf("failed to register queue depth: %w", err)
	}

	br, err := broker.New(tx, &broker.Options{
		Logger:  d.logger,
		Store:   d.st,
		Metrics: d.mt,
	})
	if err != nil {
		return fmt.Errorf("failed to create broker: %w", err)
	}
	d.br = br

	d.wk = worker.New(rx, &worker.Options{
		Logger:  d.logger,
		Store:   d.st,
		Metrics: d.mt,
	})

	d.jobs = jobs.NewRegistry()
	if err := jobs.RegisterDefaults(d.jobs, d.logger); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	if d.opts.DisableServer {
		return nil
	}

	sbr, err := d.br.Clone()
	if err != nil {
		return fmt.Errorf("failed to create server broker: %w", err)
	}

	d.hs = server.NewServer(&server.Options{
		Addr:        d.opts.Addr,
		Logger:      d.logger,
		Metrics:     d.mt,
		Jobs:        d.jobs,
		WorkerState: func() string { return d.wk.State().String() },
	},
		d.st,
		sbr,
	)

	return nil
}

func (d *Deferq) pruneJournal() error {
	if d.opts.JournalRetention < 0 {
		return nil
	}

	before := time.Now().Add(-d.opts.JournalRetention)
	n, err := state.Prune(d.st, before)
	if err != nil {
		_ = d.st.Close()
		return fmt.Errorf("failed to prune journal: %w", err)
	}

	d.logger.
		With("pruned", n).
		With("before", before).
		Info("journal pruned")
	return nil
}

func (d *Deferq) mkdir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	d.logger.
		With("dir", dir).
		Debug("directory created")
	return nil
}

// Broker returns a new producer handle. The caller owns it and must close it;
// the worker only stops once every handle is closed.
func (d *Deferq) Broker() (broker.Broker, error) {
	return d.br.Clone()
}

// Jobs exposes the registry used by the HTTP submission endpoint.
func (d *Deferq) Jobs() *jobs.Registry {
	return d.jobs
}

func (d *Deferq) Metrics() *metrics.Metrics {
	return d.mt
}

// Store returns the journal, or nil when it is disabled.
func (d *Deferq) Store() state.Store {
	return d.st
}

func (d *Deferq) WorkerState() worker.State {
	return d.wk.State()
}

// Run serves HTTP (unless disabled) and runs the worker on a dedicated
// goroutine until every producer handle is closed and the queue is drained.
// Close releases the handles held by deferq itself. A panicking task is not
// recovered and brings the process down.
func (d *Deferq) Run(ctx context.Context) error {
	if d.hs != nil {
		if err := d.hs.Run(); err != nil {
			d.logger.
				With("err", err).
				Error("failed to run server")
			return err
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- d.wk.Run(ctx)
	}()

	var err error
	select {
	case <-d.stop:
		d.logger.Info("deferq is stopping, draining queue")
		d.release()
		err = <-done
	case err = <-done:
		d.release()
	}

	if err != nil {
		d.logger.
			With("err", err).
			Warn("worker stopped early")
	}

	if d.st != nil {
		if cerr := d.st.Close(); cerr != nil {
			d.logger.
				With("err", cerr).
				Error("failed to close state store")
		}
	}

	d.logger.Info("deferq is stopped")

	return err
}

func (d *Deferq) release() {
	if d.hs != nil {
		if err := d.hs.Close(); err != nil {
			d.logger.
				With("err", err).
				Error("failed to close server")
		}
	}

	d.br.Close()
}

// Close asks Run to stop. Tasks already queued are still processed; Run
// returns once the handles handed out by Broker are closed too.
func (d *Deferq) Close() {
	d.stopOnce.Do(func() {
		d.stop <- utils.Empty{}
	})
}
