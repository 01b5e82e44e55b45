package server

import (
	"log/slog"
	"net/http"

	httpin_integ "github.com/ggicci/httpin/integration"
	"github.com/go-chi/chi/v5"
	"github.com/ttn-nguyen42/deferq/internal/broker"
	"github.com/ttn-nguyen42/deferq/internal/jobs"
	"github.com/ttn-nguyen42/deferq/internal/metrics"
	"github.com/ttn-nguyen42/deferq/internal/state"
)

type Options struct {
	Addr   string
	Logger *slog.Logger

	Metrics *metrics.Metrics
	Jobs    *jobs.Registry

	// WorkerState reports the worker state in /api/v1/stats.
	WorkerState func() string
}

type runtime struct {
	logger      *slog.Logger
	st          state.Store
	br          broker.Broker
	jobs        *jobs.Registry
	workerState func() string
}

type Server struct {
	opts    *Options
	logger  *slog.Logger
	sm      chi.Router
	hs      *http.Server
	runtime *runtime
}

// NewServer takes ownership of br and closes it in Close. st may be nil when
// the journal is disabled.
func NewServer(opts *Options, st state.Store, br broker.Broker) *Server {
	o := defaultOpts(opts)

	s := &Server{
		logger: o.Logger,
		opts:   o,
		sm:     chi.NewRouter(),
		runtime: &runtime{
			st:          st,
			br:          br,
			jobs:        o.Jobs,
			logger:      o.Logger,
			workerState: o.WorkerState,
		},
	}

	s.registerV1()
	s.sm.Method(http.MethodGet, "/metrics", o.Metrics.Handler())

	hs := http.Server{
		Addr:    o.Addr,
		Handler: s.sm,
	}
	s.hs = &hs

	return s
}

func defaultOpts(opts *Options) *Options {
	o := &Options{
		Addr:        ":8080",
		Logger:      slog.Default(),
		Jobs:        jobs.NewRegistry(),
		WorkerState: func() string { return "unknown" },
	}
	if opts == nil {
		return o
	}

	if len(opts.Addr) > 0 {
		o.Addr = opts.Addr
	}
	if opts.Logger != nil {
		o.Logger = opts.Logger
	}
	if opts.Jobs != nil {
		o.Jobs = opts.Jobs
	}
	if opts.WorkerState != nil {
		o.WorkerState = opts.WorkerState
	}
	o.Metrics = opts.Metrics

	return o
}

func init() {
	httpin_integ.UseGochiURLParam("path", chi.URLParam)
}

func (s *Server) registerV1() {
	submitTask(s.sm, s.runtime)
	listTasks(s.sm, s.runtime)
	getTask(s.sm, s.runtime)
	getStats(s.sm, s.runtime)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.sm
}

func (s *Server) Run() error {
	go func() {
		s.logger.
			With("addr", s.opts.Addr).
			Info("server is running")

		err := s.hs.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			s.logger.
				With("err", err).
				Error("failed to run server")
			return
		}
	}()

	return nil
}

func (s *Server) Close() error {
	s.logger.Info("server is closing")
	defer s.runtime.br.Close()

	return s.hs.Close()
}
