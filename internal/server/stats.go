package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ttn-nguyen42/deferq/pkg/api"
)

func getStats(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		resp := api.StatsResponse{
			Pending: rt.br.Pending(),
			Worker:  rt.workerState(),
			Jobs:    rt.jobs.Names(),
		}

		if rt.st != nil {
			counts, err := rt.st.CountByStatus()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			resp.Statuses = make(map[string]uint64, len(counts))
			for status, n := range counts {
				resp.Statuses[string(status)] = n
			}
		}

		if err := encode(w, resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	sm.
		Get("/api/v1/stats", handler)
}
