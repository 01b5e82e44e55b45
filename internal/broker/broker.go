package broker

import (
	"fmt"
	"log/slog"

	errs "github.com/ttn-nguyen42/deferq/internal/errors"
	"github.com/ttn-nguyen42/deferq/internal/metrics"
	"github.com/ttn-nguyen42/deferq/internal/queue"
	"github.com/ttn-nguyen42/deferq/internal/state"
	"github.com/ttn-nguyen42/deferq/internal/task"
)

// Broker is a producer handle. Every Broker, including clones, must be
// closed by its owner; the worker only stops once all of them are closed.
type Broker interface {
	// Submit records a task and hands it over to the worker. A task can be
	// submitted once; a second call returns errs.ErrAlreadySubmitted.
	// It returns errs.ErrDisconnected when the worker is gone.
	Submit(t *task.Task) (id string, err error)

	// Clone returns an independent handle to the same queue.
	Clone() (Broker, error)

	// Close releases this handle.
	Close()

	// Pending returns the number of queued tasks.
	Pending() int
}

type Options struct {
	Logger *slog.Logger

	// Store, when set, journals every submission.
	Store   state.Store
	Metrics *metrics.Metrics
}

type broker struct {
	logger *slog.Logger
	tx     *queue.Sender[*task.Task]
	state  state.Store
	mt     *metrics.Metrics
}

// New takes ownership of tx; closing the returned Broker closes tx.
func New(tx *queue.Sender[*task.Task], opts *Options) (Broker, error) {
	if tx == nil {
		return nil, fmt.Errorf("sender is required")
	}

	o := defaultOpts(opts)

	return &broker{
		logger: o.Logger,
		tx:     tx,
		state:  o.Store,
		mt:     o.Metrics,
	}, nil
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

func (b *broker) Clone() (Broker, error) {
	tx, ok := b.tx.Clone()
	if !ok {
		return nil, fmt.Errorf("broker %w", errs.ErrClosed)
	}

	return &broker{
		logger: b.logger,
		tx:     tx,
		state:  b.state,
		mt:     b.mt,
	}, nil
}

func (b *broker) Close() {
	b.tx.Close()
}

func (b *broker) Pending() int {
	return b.tx.Len()
}
