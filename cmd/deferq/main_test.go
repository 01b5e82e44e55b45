package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttn-nguyen42/deferq/internal/broker"
	"github.com/ttn-nguyen42/deferq/internal/queue"
	"github.com/ttn-nguyen42/deferq/internal/task"
)

func TestSubmitLogsDisconnect(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tx, rx := queue.New[*task.Task]()
	br, err := broker.New(tx, &broker.Options{Logger: slog.Default()})
	require.NoError(t, err)

	submit(br, task.NewDontExpire(func() {}, task.WithName("accepted")))
	assert.NotContains(t, buf.String(), "demo task was not submitted")

	rx.Close()
	submit(br, task.NewDontExpire(func() {}, task.WithName("late")))
	br.Close()

	out := buf.String()
	assert.Contains(t, out, "demo task was not submitted")
	assert.Contains(t, out, "task_name=late")
	assert.Contains(t, out, "consumer disconnected")
}
