package task

import "time"

func (t *Task) HasExpiredAt(now time.Time) bool {
	return t.hasExpiredAt(now)
}
