package director

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments the Director's dispatch plane. Metric names are
// faasnet_director_-prefixed, and counter names end in _total; everything
// registers on a private
// registry so repeated construction in tests never collides with the
// default one.
type Metrics struct {
	registry *prometheus.Registry

	liveWorkers    prometheus.Gauge
	placementSize  prometheus.Gauge
	pendingFanouts prometheus.Gauge
	requestsTotal  *prometheus.CounterVec
	syncPasses     *prometheus.CounterVec
	syncDuration   prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.liveWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faasnet_director_live_workers",
		Help: "Number of currently registered workers",
	})

	m.placementSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faasnet_director_placement_entries",
		Help: "Number of function ids in the placement map",
	})

	m.pendingFanouts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faasnet_director_pending_fanouts",
		Help: "Number of in-flight unregister fan-outs",
	})

	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "faasnet_director_requests_total",
		Help: "Client requests routed, by operation",
	}, []string{"operation"})

	m.syncPasses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "faasnet_director_sync_passes_total",
		Help: "Synchronization passes, by outcome",
	}, []string{"outcome"})

	m.syncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "faasnet_director_sync_pass_duration_seconds",
		Help:    "Wall time of synchronization passes",
		Buckets: prometheus.DefBuckets,
	})

	m.registry.MustRegister(
		m.liveWorkers,
		m.placementSize,
		m.pendingFanouts,
		m.requestsTotal,
		m.syncPasses,
		m.syncDuration,
	)

	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetLiveWorkers(n int) {
	if m == nil {
		return
	}
	m.liveWorkers.Set(float64(n))
}

func (m *Metrics) SetPlacementSize(n int) {
	if m == nil {
		return
	}
	m.placementSize.Set(float64(n))
}

func (m *Metrics) SetPendingFanouts(n int) {
	if m == nil {
		return
	}
	m.pendingFanouts.Set(float64(n))
}

func (m *Metrics) ObserveRequest(operation string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveSyncPass(elapsed time.Duration, completed bool) {
	if m == nil {
		return
	}
	outcome := "completed"
	if !completed {
		outcome = "abandoned"
	}
	m.syncPasses.WithLabelValues(outcome).Inc()
	m.syncDuration.Observe(elapsed.Seconds())
}
