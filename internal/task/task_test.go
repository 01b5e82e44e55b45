package task_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttn-nguyen42/deferq/internal/task"
)

func noop() {}

func TestNewDontExpire(t *testing.T) {
	t.Parallel()

	tk := task.NewDontExpire(noop)
	assert.False(t, tk.HasExpired())

	_, ok := tk.ExpiresAt()
	assert.False(t, ok)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, tk.HasExpired(), "non-expiring task must never expire")
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("not expired before the deadline", func(t *testing.T) {
		t.Parallel()

		tk := task.New(time.Hour, noop)
		assert.False(t, tk.HasExpired())

		at, ok := tk.ExpiresAt()
		require.True(t, ok)
		assert.Equal(t, tk.CreatedAt().Add(time.Hour), at)
	})

	t.Run("expired after the deadline plus a margin", func(t *testing.T) {
		t.Parallel()

		tk := task.New(20*time.Millisecond, noop)
		assert.False(t, tk.HasExpired())

		time.Sleep(40 * time.Millisecond)
		assert.True(t, tk.HasExpired())
		assert.True(t, tk.HasExpired(), "repeated checks stay expired")
	})

	t.Run("zero duration expires immediately", func(t *testing.T) {
		t.Parallel()

		tk := task.New(0, noop)
		assert.True(t, tk.HasExpired())
	})

	t.Run("negative duration is clamped", func(t *testing.T) {
		t.Parallel()

		tk := task.New(-time.Minute, noop)
		at, ok := tk.ExpiresAt()
		require.True(t, ok)
		assert.Equal(t, tk.CreatedAt(), at)
		assert.True(t, tk.HasExpired())
	})

	t.Run("nil payload panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { task.New(time.Second, nil) })
		assert.Panics(t, func() { task.NewDontExpire(nil) })
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("runs the payload once", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		tk := task.NewDontExpire(func() { calls.Add(1) })
		assert.False(t, tk.Ran())

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tk.Run()
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		assert.True(t, tk.Ran())
	})

	t.Run("payload panic propagates", func(t *testing.T) {
		t.Parallel()

		tk := task.NewDontExpire(func() { panic("boom") })
		assert.PanicsWithValue(t, "boom", tk.Run)
	})

	t.Run("run ignores expiration", func(t *testing.T) {
		t.Parallel()

		ran := false
		tk := task.New(0, func() { ran = true })
		tk.Run()
		assert.True(t, ran)
	})
}

func TestOptions(t *testing.T) {
	t.Parallel()

	a := task.NewDontExpire(noop)
	b := task.NewDontExpire(noop)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, task.DefaultName, a.Name())

	c := task.New(time.Second, noop, task.WithName("report"), task.WithID("fixed"))
	assert.Equal(t, "report", c.Name())
	assert.Equal(t, "fixed", c.ID())

	d := task.NewDontExpire(noop, task.WithName(""), task.WithID(""))
	assert.Equal(t, task.DefaultName, d.Name())
	assert.NotEmpty(t, d.ID())
}

func TestMarkSubmitted(t *testing.T) {
	t.Parallel()

	tk := task.NewDontExpire(noop)
	assert.False(t, tk.Submitted())

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tk.MarkSubmitted() {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.True(t, tk.Submitted())
	assert.False(t, tk.Ran())
}
