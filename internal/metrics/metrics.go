// Package metrics exposes the daemon's operational counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ReconcilePasses counts completed reconciliation passes.
	ReconcilePasses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bindrelay",
		Name:      "reconcile_passes_total",
		Help:      "Completed reconciliation passes against the task store.",
	})

	// ReconcileFailures counts passes skipped because the task list could
	// not be loaded.
	ReconcileFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bindrelay",
		Name:      "reconcile_failures_total",
		Help:      "Reconciliation passes skipped due to task store errors.",
	})

	// TimersStarted counts live timers created by reconciliation.
	TimersStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bindrelay",
		Name:      "timers_started_total",
		Help:      "Live timers created for binding tasks.",
	})

	// TimersExpired counts timers removed by the expiry check.
	TimersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bindrelay",
		Name:      "timers_expired_total",
		Help:      "Live timers terminated at contract expiry.",
	})

	// LiveTimers tracks the current size of the timer registry.
	LiveTimers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bindrelay",
		Name:      "live_timers",
		Help:      "Binding tasks currently holding a live timer.",
	})

	// Firings counts timer firings by outcome.
	Firings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bindrelay",
		Name:      "firings_total",
		Help:      "Timer firings by outcome.",
	}, []string{"status"})

	// RelayCalls counts publish attempts by result.
	RelayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bindrelay",
		Name:      "relay_calls_total",
		Help:      "Publish-data calls by result.",
	}, []string{"result"})

	// ExtractErrors counts extraction failures by data kind.
	ExtractErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bindrelay",
		Name:      "extract_errors_total",
		Help:      "Extraction failures by data kind.",
	}, []string{"kind"})
)

// Handler serves the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
