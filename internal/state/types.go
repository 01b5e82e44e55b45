package state

import (
	"encoding/json"
	"time"
)

// Store is the execution journal. It records what happened to each submitted
// task; it is never used to restore or replay tasks.
type Store interface {
	Close() error

	// RecordInfo upserts a task info into a persistent store.
	RecordInfo(t *TaskInfo) (id string, err error)

	// GetInfo retrieves a task info from a persistent store.
	GetInfo(id string) (info *TaskInfo, err error)

	// DeleteInfo removes a task info from a persistent store.
	// It returns true if the task info exists and is deleted.
	DeleteInfo(id string) (ok bool, err error)

	// ListInfo retrieves a list of task info from a persistent store.
	// The result is sorted oldest first.
	ListInfo(skip uint64, limit uint64) (info []TaskInfo, err error)

	// UpdateInfo updates a task info atomically.
	// It returns true if the task info exists and is updated.
	UpdateInfo(id string, upd func(*TaskInfo) bool) (ok bool, err error)

	// CountByStatus returns the number of recorded tasks per status.
	CountByStatus() (counts map[TaskStatus]uint64, err error)
}

type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusExpired  TaskStatus = "expired"
	TaskStatusFailed   TaskStatus = "failed"
	TaskStatusRejected TaskStatus = "rejected"
)

type TaskInfo struct {
	ID          string
	Name        string
	SubmittedAt time.Time

	Expires   bool
	ExpiresAt time.Time

	Status TaskStatus
	Reason string

	StartedAt   time.Time
	CompletedAt time.Time
}

// Finished reports whether the task reached a final status.
func (t *TaskInfo) Finished() bool {
	switch t.Status {
	case TaskStatusComplete, TaskStatusExpired, TaskStatusFailed, TaskStatusRejected:
		return true
	default:
		return false
	}
}

func NewTaskInfo(id string, name string, expiresAt time.Time, expires bool) *TaskInfo {
	return &TaskInfo{
		ID:          id,
		Name:        name,
		SubmittedAt: time.Now(),
		Expires:     expires,
		ExpiresAt:   expiresAt,
		Status:      TaskStatusPending,
	}
}

func EncodeInfo(t *TaskInfo) ([]byte, error) {
	return json.Marshal(t)
}

func DecodeInfo(data []byte) (*TaskInfo, error) {
	t := &TaskInfo{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}

var (
	BucketTaskInfo = ns("task_info")
)

func ns(name string) string {
	return "deferq:" + name
}

// TaskInfoKey builds a key used by a single task info
func TaskInfoKey(id string) string {
	return ns("task:" + id)
}
