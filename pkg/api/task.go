package api

import (
	"time"

	"github.com/ttn-nguyen42/deferq/internal/utils"
)

type SubmitTaskRequest struct {
	Job   string         `json:"job"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`

	// ExpiresIn is relative to the time the request is handled.
	// Omitted means the task never expires.
	ExpiresIn *utils.Duration `json:"expiresIn,omitempty"`
}

type SubmitTaskResponse struct {
	TaskId string `json:"taskId"`
}

type GetTaskRequest struct {
	TaskId string `in:"path=taskId"`
}

type TaskInfo struct {
	TaskId      string     `json:"taskId"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type GetTaskResponse TaskInfo

type ListTasksRequest struct {
	Page uint64 `in:"query=page"`
	Size uint64 `in:"query=size"`
}

type ListTasksResponse struct {
	Tasks []TaskInfo `json:"tasks"`
}
