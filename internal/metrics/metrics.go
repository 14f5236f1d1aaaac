// Package metrics holds the Prometheus instruments exported by the daemon.
//
// All methods are safe to call on a nil *Metrics so components can be used
// without instrumentation in tests and one-shot commands.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded by CalendarFetch.
const (
	OutcomeOK        = "ok"
	OutcomeLookup    = "lookup_failure"
	OutcomeTransport = "transport_failure"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

type Metrics struct {
	registry       *prometheus.Registry
	calendarFetch  *prometheus.CounterVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheCorrupt   prometheus.Counter
	prayersElapsed *prometheus.CounterVec
	rollovers      prometheus.Counter
	alertFailures  prometheus.Counter
	queueLength    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calendarFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "athany_calendar_fetch_total",
			Help: "Remote calendar fetches by outcome.",
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "athany_calendar_cache_hits_total",
			Help: "Month schedules served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "athany_calendar_cache_misses_total",
			Help: "Month schedules not found in the cache.",
		}),
		cacheCorrupt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "athany_calendar_cache_corrupt_total",
			Help: "Cached month schedules that failed to decode and were re-fetched.",
		}),
		prayersElapsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "athany_prayers_elapsed_total",
			Help: "Prayers popped from the upcoming queue.",
		}, []string{"prayer"}),
		rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "athany_rollovers_total",
			Help: "Completed day rollovers.",
		}),
		alertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "athany_alert_failures_total",
			Help: "Audio or notification triggers that failed.",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "athany_upcoming_queue_length",
			Help: "Prayers remaining in the upcoming queue.",
		}),
	}

	m.registry.MustRegister(
		m.calendarFetch,
		m.cacheHits,
		m.cacheMisses,
		m.cacheCorrupt,
		m.prayersElapsed,
		m.rollovers,
		m.alertFailures,
		m.queueLength,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CalendarFetch(outcome string) {
	if m == nil {
		return
	}
	m.calendarFetch.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) CacheCorrupt() {
	if m == nil {
		return
	}
	m.cacheCorrupt.Inc()
}

func (m *Metrics) PrayerElapsed(name string) {
	if m == nil {
		return
	}
	m.prayersElapsed.WithLabelValues(name).Inc()
}

func (m *Metrics) Rollover() {
	if m == nil {
		return
	}
	m.rollovers.Inc()
}

func (m *Metrics) AlertFailure() {
	if m == nil {
		return
	}
	m.alertFailures.Inc()
}

func (m *Metrics) QueueLength(n int) {
	if m == nil {
		return
	}
	m.queueLength.Set(float64(n))
}
