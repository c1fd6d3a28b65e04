// Package metrics exposes Prometheus instrumentation for scan cycles,
// status transitions, alerts and allow-list syncs.
//
// All methods are safe to call on a nil *Metrics so components can run
// uninstrumented in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	cycles           *prometheus.CounterVec
	cycleDuration    *prometheus.HistogramVec
	observations     prometheus.Counter
	malformed        prometheus.Counter
	threats          prometheus.Counter
	transitions      *prometheus.CounterVec
	alerts           *prometheus.CounterVec
	allowListSyncs   *prometheus.CounterVec
	allowListEntries prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "janus_scan_cycles_total",
			Help: "Scan cycles processed by mode and outcome.",
		}, []string{"mode", "outcome"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "janus_scan_cycle_duration_seconds",
			Help:    "Histogram of scan cycle durations by mode.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		observations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "janus_observations_total",
			Help: "Observations received from scanners.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "janus_observations_malformed_total",
			Help: "Observations skipped because they could not be scored.",
		}),
		threats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "janus_threats_detected_total",
			Help: "Assessments with a high or critical threat level.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "janus_status_transitions_total",
			Help: "Network status transitions by from/to status.",
		}, []string{"from", "to"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "janus_alerts_total",
			Help: "Alerts emitted by kind and delivery result.",
		}, []string{"kind", "result"}),
		allowListSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "janus_allowlist_syncs_total",
			Help: "Allow-list sync attempts by result.",
		}, []string{"result"}),
		allowListEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "janus_allowlist_entries",
			Help: "Entries in the active allow-list snapshot.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "janus_http_requests_total",
			Help: "Total count of HTTP requests processed by method and status.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "janus_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.observations,
		m.malformed,
		m.threats,
		m.transitions,
		m.alerts,
		m.allowListSyncs,
		m.allowListEntries,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the gatherer's metrics in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func mode(manual bool) string {
	if manual {
		return "manual"
	}
	return "background"
}

func (m *Metrics) ObserveCycle(manual bool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(mode(manual), outcome).Inc()
	m.cycleDuration.WithLabelValues(mode(manual)).Observe(d.Seconds())
}

func (m *Metrics) AddObservations(total, malformed, threats int) {
	if m == nil {
		return
	}
	m.observations.Add(float64(total))
	m.malformed.Add(float64(malformed))
	m.threats.Add(float64(threats))
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Alert(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.alerts.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) AllowListSync(result string, entries int) {
	if m == nil {
		return
	}
	m.allowListSyncs.WithLabelValues(result).Inc()
	if entries >= 0 {
		m.allowListEntries.Set(float64(entries))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Instrument wraps next with request counting and timing.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
