// Package queue implements an unbounded multi-producer, single-consumer FIFO.
//
// New returns one write-end and one read-end. Write-ends can be cloned and
// handed to any number of goroutines; each must be closed by its owner. Once
// every write-end is closed and the buffer is drained the read-end reports
// end-of-stream.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	errs "github.com/ttn-nguyen42/deferq/internal/errors"
	"github.com/ttn-nguyen42/deferq/internal/utils"
)

// compactAfter is the number of consumed slots after which the buffer is
// shifted down to reuse its backing array.
const compactAfter = 64

type core[T any] struct {
	mu sync.Mutex

	buf  []T
	head int

	senders    int
	recvClosed bool

	// notify wakes the receiver; capacity 1 so producers never block on it.
	notify chan utils.Empty
}

// New creates a queue and returns its first write-end and its read-end.
func New[T any]() (*Sender[T], *Receiver[T]) {
	c := &core[T]{
		senders: 1,
		notify:  make(chan utils.Empty, 1),
	}
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

func (c *core[T]) len() int {
	return len(c.buf) - c.head
}

func (c *core[T]) wake() {
	select {
	case c.notify <- utils.Empty{}:
	default:
	}
}

// push appends v unless the read-end or the sending handle is closed. Both
// flags are checked under mu, the lock Close takes, so a value is never
// appended after the last write-end is gone.
func (c *core[T]) push(closed *atomic.Bool, v T) bool {
	c.mu.Lock()
	if c.recvClosed || closed.Load() {
		c.mu.Unlock()
		return false
	}
	c.buf = append(c.buf, v)
	c.mu.Unlock()

	c.wake()
	return true
}

// pop returns the head of the buffer. eos is true when the buffer is empty
// and no write-end is left.
func (c *core[T]) pop() (v T, ok bool, eos bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.len() > 0 {
		v = c.buf[c.head]
		var zero T
		c.buf[c.head] = zero
		c.head++
		switch {
		case c.head == len(c.buf):
			c.buf = c.buf[:0]
			c.head = 0
		case c.head >= compactAfter && c.head*2 >= len(c.buf):
			n := copy(c.buf, c.buf[c.head:])
			clear(c.buf[n:])
			c.buf = c.buf[:n]
			c.head = 0
		}
		return v, true, false
	}

	return v, false, c.senders == 0
}

// Sender is a write-end of the queue.
type Sender[T any] struct {
	c      *core[T]
	closed atomic.Bool
}

// Send appends v to the queue without blocking. It returns false if the
// read-end is closed or this write-end has been closed.
func (s *Sender[T]) Send(v T) bool {
	return s.c.push(&s.closed, v)
}

// Clone returns a new write-end for the same queue. It fails once this
// write-end has been closed.
func (s *Sender[T]) Clone() (*Sender[T], bool) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.closed.Load() {
		return nil, false
	}

	s.c.senders++
	return &Sender[T]{c: s.c}, true
}

// Close releases this write-end. It is safe to call more than once.
func (s *Sender[T]) Close() {
	s.c.mu.Lock()
	if !s.closed.CompareAndSwap(false, true) {
		s.c.mu.Unlock()
		return
	}
	s.c.senders--
	last := s.c.senders == 0
	s.c.mu.Unlock()

	if last {
		s.c.wake()
	}
}

// Len returns the number of buffered values.
func (s *Sender[T]) Len() int {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	return s.c.len()
}

// Receiver is the single read-end of the queue. It must be used by one
// goroutine at a time.
type Receiver[T any] struct {
	c   *core[T]
	eos atomic.Bool
}

// Recv blocks until a value is available or the stream has ended.
func (r *Receiver[T]) Recv() (T, bool) {
	v, err := r.RecvContext(context.Background())
	return v, err == nil
}

// RecvContext blocks until a value is available, the stream has ended
// (errs.ErrEndOfStream) or ctx is done (ctx.Err()).
func (r *Receiver[T]) RecvContext(ctx context.Context) (T, error) {
	var zero T

	for {
		if r.eos.Load() {
			return zero, errs.ErrEndOfStream
		}

		v, ok, eos := r.c.pop()
		if ok {
			return v, nil
		}
		if eos {
			r.eos.Store(true)
			return zero, errs.ErrEndOfStream
		}

		select {
		case <-r.c.notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close releases the read-end. Buffered values are dropped and every later
// Send fails.
func (r *Receiver[T]) Close() {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	r.eos.Store(true)
	r.c.recvClosed = true
	r.c.buf = nil
	r.c.head = 0
}

// Len returns the number of buffered values.
func (r *Receiver[T]) Len() int {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	return r.c.len()
}
