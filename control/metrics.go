// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus exporter for scheduler observations. Collectors are safe for
// concurrent use, so the loop goroutine records while promhttp scrapes.

package control

import (
	"fmt"
	"net/http"

	"github.com/momentics/hioload-xfer/internal/concurrency"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsExporter adapts concurrency.Metrics to Prometheus collectors.
type MetricsExporter struct {
	tasksSpawned *prom.CounterVec
	tasksRetired *prom.CounterVec
	queueDepth   *prom.GaugeVec
	pollWakeups  prom.Counter
	readyEvents  prom.Histogram
	gatherer     prom.Gatherer
}

var _ concurrency.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers the scheduler collectors.
// A nil registry gets a private one, exposed through Handler.
func NewMetricsExporter(namespace string, reg *prom.Registry) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "xfer"
	}
	if reg == nil {
		reg = prom.NewRegistry()
	}

	spawned := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_spawned_total",
		Help:      "Total number of tasks spawned on the event loop.",
	}, []string{"task"})
	retired := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_retired_total",
		Help:      "Total number of tasks retired, by outcome.",
	}, []string{"task", "outcome"})
	depth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_tasks",
		Help:      "Tasks held by the scheduler before the last poll.",
	}, []string{"state"})
	wakeups := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "poll_wakeups_total",
		Help:      "Total number of readiness polls that returned.",
	})
	readyEvents := prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_ready_events",
		Help:      "Readiness events delivered per poll.",
		Buckets:   prom.ExponentialBuckets(1, 2, 8),
	})

	for _, c := range []prom.Collector{spawned, retired, depth, wakeups, readyEvents} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return &MetricsExporter{
		tasksSpawned: spawned,
		tasksRetired: retired,
		queueDepth:   depth,
		pollWakeups:  wakeups,
		readyEvents:  readyEvents,
		gatherer:     reg,
	}, nil
}

// TaskSpawned implements concurrency.Metrics.
func (m *MetricsExporter) TaskSpawned(name string) {
	m.tasksSpawned.WithLabelValues(normalizeLabel(name)).Inc()
}

// TaskRetired implements concurrency.Metrics.
func (m *MetricsExporter) TaskRetired(name string, outcome concurrency.Outcome) {
	m.tasksRetired.WithLabelValues(normalizeLabel(name), outcome.String()).Inc()
}

// QueueDepth implements concurrency.Metrics.
func (m *MetricsExporter) QueueDepth(queued, parked int) {
	m.queueDepth.WithLabelValues("queued").Set(float64(queued))
	m.queueDepth.WithLabelValues("parked").Set(float64(parked))
}

// PollWakeup implements concurrency.Metrics.
func (m *MetricsExporter) PollWakeup(ready int) {
	m.pollWakeups.Inc()
	m.readyEvents.Observe(float64(ready))
}

// Handler serves the exporter's registry in the Prometheus text format.
func (m *MetricsExporter) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
