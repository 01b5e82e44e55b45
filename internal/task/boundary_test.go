package task_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ttn-nguyen42/deferq/internal/task"
)

func TestHasExpiredBoundary(t *testing.T) {
	t.Parallel()

	tk := task.New(time.Second, noop)
	at, _ := tk.ExpiresAt()

	assert.False(t, tk.HasExpiredAt(at.Add(-time.Nanosecond)))
	assert.True(t, tk.HasExpiredAt(at), "expired exactly at the deadline")
	assert.True(t, tk.HasExpiredAt(at.Add(time.Nanosecond)))

	never := task.NewDontExpire(noop)
	assert.False(t, never.HasExpiredAt(time.Now().Add(100*365*24*time.Hour)))
}
