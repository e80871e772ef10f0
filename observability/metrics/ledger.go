package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks the ledger's operation throughput and the lending
// aggregates most useful on a dashboard.
type LedgerMetrics struct {
	opsTotal      *prometheus.CounterVec
	opDuration    *prometheus.HistogramVec
	activeLoans   prometheus.Gauge
	poolUtilBps   *prometheus.GaugeVec
	eventsEmitted *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendnet",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Count of ledger operations by action and outcome.",
			}, []string{"action", "outcome"}),
			opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lendnet",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency of committed ledger operations by action.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
			activeLoans: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "lendnet",
				Subsystem: "ledger",
				Name:      "active_loans",
				Help:      "Number of currently active loans.",
			}),
			poolUtilBps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "lendnet",
				Subsystem: "pool",
				Name:      "utilisation_bps",
				Help:      "Pool utilisation in basis points per asset.",
			}, []string{"asset"}),
			eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendnet",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of ledger events emitted by type.",
			}, []string{"type"}),
			httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendnet",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Count of API requests by route and status class.",
			}, []string{"route", "status"}),
			httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lendnet",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency of API requests by route.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.opsTotal,
			ledgerRegistry.opDuration,
			ledgerRegistry.activeLoans,
			ledgerRegistry.poolUtilBps,
			ledgerRegistry.eventsEmitted,
			ledgerRegistry.httpRequests,
			ledgerRegistry.httpDuration,
		)
	})
	return ledgerRegistry
}

// ObserveOperation records one ledger operation attempt.
func (m *LedgerMetrics) ObserveOperation(action string, err error, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.opsTotal.WithLabelValues(action, outcome).Inc()
	if err == nil {
		m.opDuration.WithLabelValues(action).Observe(took.Seconds())
	}
}

// SetActiveLoans updates the active-loan gauge.
func (m *LedgerMetrics) SetActiveLoans(n int) {
	if m == nil {
		return
	}
	m.activeLoans.Set(float64(n))
}

// SetPoolUtilisation updates the utilisation gauge for asset.
func (m *LedgerMetrics) SetPoolUtilisation(asset string, bps uint64) {
	if m == nil {
		return
	}
	m.poolUtilBps.WithLabelValues(asset).Set(float64(bps))
}

// ObserveEvent counts one emitted ledger event.
func (m *LedgerMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.eventsEmitted.WithLabelValues(eventType).Inc()
}

// ObserveRequest records one API request.
func (m *LedgerMetrics) ObserveRequest(route, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(took.Seconds())
}
