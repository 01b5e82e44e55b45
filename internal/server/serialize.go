package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ttn-nguyen42/deferq/internal/state"
	"github.com/ttn-nguyen42/deferq/pkg/api"
)

func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	return json.
		NewDecoder(r.Body).
		Decode(v)
}

func encode(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")

	return json.
		NewEncoder(w).
		Encode(v)
}

func respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.
		NewEncoder(w).
		Encode(v)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toTaskInfo(ti *state.TaskInfo) api.TaskInfo {
	info := api.TaskInfo{
		TaskId:      ti.ID,
		Name:        ti.Name,
		Status:      string(ti.Status),
		Reason:      ti.Reason,
		SubmittedAt: ti.SubmittedAt,
		StartedAt:   optionalTime(ti.StartedAt),
		CompletedAt: optionalTime(ti.CompletedAt),
	}
	if ti.Expires {
		info.ExpiresAt = optionalTime(ti.ExpiresAt)
	}
	return info
}
