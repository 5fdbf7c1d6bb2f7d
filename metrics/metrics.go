// Package metrics exposes Prometheus-compatible instrumentation for the
// Runner Core, grounded on the teacher's graph/metrics.go
// (PrometheusMetrics / promauto pattern), renamed to the Constellation
// Runtime's own vocabulary: nodes in flight, fan-out frontier depth, node
// latency, retries, loop iterations, and HITL pauses.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every gauge/counter/histogram the Runner Core updates
// during execution. All are namespaced "constellation_runtime".
type Metrics struct {
	nodesInflight       prometheus.Gauge
	frontierDepth       prometheus.Gauge
	nodeLatencyMS       *prometheus.HistogramVec
	retriesTotal        *prometheus.CounterVec
	loopIterationsTotal *prometheus.CounterVec
	hitlPausesTotal     *prometheus.CounterVec
}

// New registers and returns a Metrics collector against registry. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		nodesInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "constellation_runtime",
			Name:      "nodes_inflight",
			Help:      "Current number of StarNodes executing concurrently",
		}),
		frontierDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "constellation_runtime",
			Name:      "frontier_depth",
			Help:      "Number of sibling nodes queued in a parallel fan-out wave",
		}),
		nodeLatencyMS: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "constellation_runtime",
			Name:      "node_latency_ms",
			Help:      "StarNode execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"constellation_id", "node_id", "status"}),
		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "constellation_runtime",
			Name:      "retries_total",
			Help:      "Cumulative retry attempts across all StarNode executions",
		}, []string{"constellation_id", "node_id"}),
		loopIterationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "constellation_runtime",
			Name:      "loop_iterations_total",
			Help:      "Cumulative eval-loop re-entries",
		}, []string{"constellation_id"}),
		hitlPausesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "constellation_runtime",
			Name:      "hitl_pauses_total",
			Help:      "Cumulative human-in-the-loop confirmation pauses",
		}, []string{"constellation_id", "node_id"}),
	}
}

// NodeStarted increments the in-flight gauge.
func (m *Metrics) NodeStarted() {
	if m == nil {
		return
	}
	m.nodesInflight.Inc()
}

// NodeFinished decrements the in-flight gauge and records latency/status.
func (m *Metrics) NodeFinished(constellationID, nodeID, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.nodesInflight.Dec()
	m.nodeLatencyMS.WithLabelValues(constellationID, nodeID, status).Observe(float64(d.Milliseconds()))
}

// SetFrontierDepth records the size of a pending parallel fan-out wave.
func (m *Metrics) SetFrontierDepth(n int) {
	if m == nil {
		return
	}
	m.frontierDepth.Set(float64(n))
}

// RetryAttempted records one retry attempt for a node.
func (m *Metrics) RetryAttempted(constellationID, nodeID string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(constellationID, nodeID).Inc()
}

// LoopIterated records one eval-loop re-entry.
func (m *Metrics) LoopIterated(constellationID string) {
	if m == nil {
		return
	}
	m.loopIterationsTotal.WithLabelValues(constellationID).Inc()
}

// HITLPaused records one human-in-the-loop pause.
func (m *Metrics) HITLPaused(constellationID, nodeID string) {
	if m == nil {
		return
	}
	m.hitlPausesTotal.WithLabelValues(constellationID, nodeID).Inc()
}
