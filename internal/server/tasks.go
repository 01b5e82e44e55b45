package server

import (
	"errors"
	"net/http"

	"github.com/ggicci/httpin"
	"github.com/go-chi/chi/v5"
	errs "github.com/ttn-nguyen42/deferq/internal/errors"
	"github.com/ttn-nguyen42/deferq/internal/utils"
	"github.com/ttn-nguyen42/deferq/pkg/api"
)

const journalDisabled = "task journal is disabled"

func listTasks(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		req := r.
			Context().
			Value(httpin.Input).(*api.ListTasksRequest)

		if rt.st == nil {
			http.Error(w, journalDisabled, http.StatusNotImplemented)
			return
		}

		skip, limit := utils.ToSkipAndLimit(req.Page, req.Size)
		tasks, err := rt.st.ListInfo(skip, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := api.ListTasksResponse{
			Tasks: make([]api.TaskInfo, 0, len(tasks)),
		}

		for i := range tasks {
			resp.Tasks = append(resp.Tasks, toTaskInfo(&tasks[i]))
		}

		if err := encode(w, resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	sm.
		With(httpin.NewInput(api.ListTasksRequest{})).
		Get("/api/v1/tasks", handler)
}

func getTask(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		req := r.
			Context().
			Value(httpin.Input).(*api.GetTaskRequest)

		if rt.st == nil {
			http.Error(w, journalDisabled, http.StatusNotImplemented)
			return
		}

		ti, err := rt.st.GetInfo(req.TaskId)
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if err := encode(w, api.GetTaskResponse(toTaskInfo(ti))); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	sm.
		With(httpin.NewInput(api.GetTaskRequest{})).
		Get("/api/v1/tasks/{taskId}", handler)
}
