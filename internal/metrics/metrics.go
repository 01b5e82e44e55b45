// Package metrics exposes task execution counters to Prometheus.
//
// Every recording method is safe to call on a nil *Metrics, so components can
// take an optional collector without guarding each call.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "deferq"

type Metrics struct {
	reg *prometheus.Registry

	Submitted   prometheus.Counter
	Rejected    prometheus.Counter
	Executed    prometheus.Counter
	Expired     prometheus.Counter
	Failed      prometheus.Counter
	RunDuration prometheus.Histogram
	QueueWait   prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New(namespace string) *Metrics {
	if len(namespace) == 0 {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,

		Submitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Total number of tasks accepted by the queue",
		}),
		// sends that happened after the worker was gone
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_rejected_total",
			Help:      "Total number of tasks submitted after the consumer disconnected",
		}),
		Executed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_executed_total",
			Help:      "Total number of tasks that ran to completion",
		}),
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_expired_total",
			Help:      "Total number of tasks discarded because they expired before being dequeued",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Total number of tasks whose payload panicked",
		}),
		// 1ms, 5ms, 10ms, 50ms, 100ms, 500ms, 1s, 5s, 10s, 30s
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_run_duration_seconds",
			Help:      "Time spent running task payloads",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		QueueWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_queue_wait_seconds",
			Help:      "Time between task creation and dequeue",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
	}
}

// RegisterQueueDepth exposes fn as the current queue depth gauge.
func (m *Metrics) RegisterQueueDepth(namespace string, fn func() float64) error {
	if m == nil {
		return nil
	}
	if len(namespace) == 0 {
		namespace = DefaultNamespace
	}

	return m.reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of tasks buffered in the queue",
		},
		fn,
	))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) TaskSubmitted() {
	if m == nil {
		return
	}
	m.Submitted.Inc()
}

func (m *Metrics) TaskRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

func (m *Metrics) TaskDequeued(wait time.Duration) {
	if m == nil {
		return
	}
	m.QueueWait.Observe(wait.Seconds())
}

func (m *Metrics) TaskExecuted(d time.Duration) {
	if m == nil {
		return
	}
	m.Executed.Inc()
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) TaskExpired() {
	if m == nil {
		return
	}
	m.Expired.Inc()
}

func (m *Metrics) TaskFailed(d time.Duration) {
	if m == nil {
		return
	}
	m.Failed.Inc()
	m.RunDuration.Observe(d.Seconds())
}
