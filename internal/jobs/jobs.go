// Package jobs maps job names to payload factories so that tasks can be
// described by data (for instance an HTTP request) instead of code.
package jobs

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	errs "github.com/ttn-nguyen42/deferq/internal/errors"
)

// Input is the free-form argument map of a job.
type Input map[string]any

// Factory builds a payload from its input. Validation happens here, before
// the task is queued.
type Factory func(in Input) (func(), error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(name string, f Factory) error {
	if len(name) == 0 {
		return fmt.Errorf("job name is required")
	}
	if f == nil {
		return fmt.Errorf("job %q has no factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("job %q: %w", name, errs.ErrAlreadyExists)
	}

	r.factories[name] = f
	return nil
}

// Build returns the payload of job name for in.
func (r *Registry) Build(name string, in Input) (func(), error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errs.NewErrNotFound("job " + name)
	}

	fn, err := f(in)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", name, err)
	}
	if fn == nil {
		return nil, fmt.Errorf("job %q built an empty payload", name)
	}

	return fn, nil
}

// Names returns the registered job names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// RegisterDefaults adds the built-in "log" and "sleep" jobs.
func RegisterDefaults(r *Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	err := r.Register("log", func(in Input) (func(), error) {
		msg, _ := in["message"].(string)
		if len(msg) == 0 {
			return nil, fmt.Errorf("message is required")
		}
		return func() {
			logger.
				With("job", "log").
				Info(msg)
		}, nil
	})
	if err != nil {
		return err
	}

	return r.Register("sleep", func(in Input) (func(), error) {
		raw, _ := in["duration"].(string)
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("duration must be greater than or equal to 0")
		}
		return func() {
			time.Sleep(d)
		}, nil
	})
}
