package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	errs "github.com/ttn-nguyen42/deferq/internal/errors"
	"github.com/ttn-nguyen42/deferq/internal/jobs"
	"github.com/ttn-nguyen42/deferq/internal/task"
	"github.com/ttn-nguyen42/deferq/pkg/api"
)

func submitTask(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		var req api.SubmitTaskRequest

		if err := decode(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if len(req.Job) == 0 {
			http.Error(w, "job is required", http.StatusBadRequest)
			return
		}

		if req.ExpiresIn != nil && req.ExpiresIn.Std() < 0 {
			http.Error(w, "expiresIn must be greater than or equal to 0", http.StatusBadRequest)
			return
		}

		fn, err := rt.jobs.Build(req.Job, jobs.Input(req.Input))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		name := req.Name
		if len(name) == 0 {
			name = req.Job
		}

		var t *task.Task
		if req.ExpiresIn != nil {
			t = task.New(req.ExpiresIn.Std(), fn, task.WithName(name))
		} else {
			t = task.NewDontExpire(fn, task.WithName(name))
		}

		id, err := rt.br.Submit(t)
		if errors.Is(err, errs.ErrDisconnected) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		rt.logger.
			With("task_id", id).
			With("job", req.Job).
			Info("task submitted over http")

		respond(w, http.StatusCreated, api.SubmitTaskResponse{
			TaskId: id,
		})
	}

	sm.
		Post("/api/v1/tasks", handler)
}
