package broker

import (
	"fmt"
	"time"

	errs "github.com/ttn-nguyen42/deferq/internal/errors"
	"github.com/ttn-nguyen42/deferq/internal/state"
	"github.com/ttn-nguyen42/deferq/internal/task"
)

func (b *broker) Submit(t *task.Task) (id string, err error) {
	err = b.validateTask(t)
	if err != nil {
		b.logger.
			With("err", err).
			Error("unable to submit, invalid task")
		return
	}

	id, err = b.submitTask(t)
	if err != nil {
		b.logger.
			With("err", err).
			With("task_id", t.ID()).
			With("task_name", t.Name()).
			Warn("failed to submit task")
		return
	}

	b.logger.
		With("task_id", id).
		With("task_name", t.Name()).
		Debug("task submitted")
	return id, nil
}

func (b *broker) validateTask(t *task.Task) (err error) {
	if t == nil {
		return fmt.Errorf("task is required")
	}

	if t.Ran() {
		return fmt.Errorf("task %s has already run", t.ID())
	}

	if !t.MarkSubmitted() {
		return fmt.Errorf("task %s %w", t.ID(), errs.ErrAlreadySubmitted)
	}

	return nil
}

func (b *broker) submitTask(t *task.Task) (id string, err error) {
	id = t.ID()

	// recorded before sending so the worker always finds the entry
	if b.state != nil {
		expiresAt, expires := t.ExpiresAt()
		ti := state.NewTaskInfo(id, t.Name(), expiresAt, expires)

		if _, err = b.state.RecordInfo(ti); err != nil {
			err = fmt.Errorf("failed to record task info: %w", err)
			return
		}
	}

	if !b.tx.Send(t) {
		b.mt.TaskRejected()
		b.markRejected(id)
		err = errs.ErrDisconnected
		return
	}

	b.mt.TaskSubmitted()
	return id, nil
}

func (b *broker) markRejected(id string) {
	if b.state == nil {
		return
	}

	_, err := b.state.UpdateInfo(id, func(ti *state.TaskInfo) bool {
		ti.Status = state.TaskStatusRejected
		ti.CompletedAt = time.Now()
		return true
	})
	if err != nil {
		b.logger.
			With("task_id", id).
			With("err", err).
			Warn("failed to mark task as rejected")
	}
}
