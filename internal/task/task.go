// Package task holds the unit of deferred work handed from producers to the
// worker.
package task

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const DefaultName = "task"

// Task is a payload paired with an optional absolute expiration instant.
// All fields are fixed at construction; only the submit and run markers
// change.
type Task struct {
	id        string
	name      string
	createdAt time.Time

	expires   bool
	expiresAt time.Time

	fn        func()
	submitted atomic.Bool
	ran       atomic.Bool
}

type Option func(*Task)

// WithName labels the task in logs and in the journal.
func WithName(name string) Option {
	return func(t *Task) {
		if len(name) > 0 {
			t.name = name
		}
	}
}

// WithID overrides the generated identifier.
func WithID(id string) Option {
	return func(t *Task) {
		if len(id) > 0 {
			t.id = id
		}
	}
}

// New creates a task that expires once d has elapsed from now.
// A negative d is treated as zero, so the task is already expired.
func New(d time.Duration, fn func(), opts ...Option) *Task {
	if d < 0 {
		d = 0
	}

	t := newTask(fn, opts...)
	t.expires = true
	t.expiresAt = t.createdAt.Add(d)
	return t
}

// NewDontExpire creates a task that never expires.
func NewDontExpire(fn func(), opts ...Option) *Task {
	return newTask(fn, opts...)
}

func newTask(fn func(), opts ...Option) *Task {
	if fn == nil {
		panic("task: nil payload")
	}

	t := &Task{
		id:        newID(),
		name:      DefaultName,
		createdAt: time.Now(),
		fn:        fn,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (t *Task) ID() string {
	return t.id
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}

// ExpiresAt returns the expiration instant and whether one is set.
func (t *Task) ExpiresAt() (time.Time, bool) {
	return t.expiresAt, t.expires
}

// HasExpired reports whether the expiration instant is set and the current
// time is at or past it.
func (t *Task) HasExpired() bool {
	return t.hasExpiredAt(time.Now())
}

func (t *Task) hasExpiredAt(now time.Time) bool {
	if !t.expires {
		return false
	}
	return !now.Before(t.expiresAt)
}

// Run invokes the payload on the calling goroutine. Only the first call runs
// it; later calls return immediately. A panicking payload is not recovered.
func (t *Task) Run() {
	if !t.ran.CompareAndSwap(false, true) {
		return
	}
	t.fn()
}

// Ran reports whether Run has been called.
func (t *Task) Ran() bool {
	return t.ran.Load()
}

// MarkSubmitted flags the task as handed to a queue. It returns false if the
// task was already flagged, so a task enters the queue at most once.
func (t *Task) MarkSubmitted() bool {
	return t.submitted.CompareAndSwap(false, true)
}

func (t *Task) Submitted() bool {
	return t.submitted.Load()
}
