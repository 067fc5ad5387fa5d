package poll

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ride_client"

var (
	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "poll_ticks_total",
		Help:      "Poll ticks fired",
	}, []string{"poller"})

	intervalSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "poll_interval_seconds",
		Help:      "Current poll period, 0 when stopped",
	}, []string{"poller"})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "poll_outcomes_total",
		Help:      "Poll results by outcome",
	}, []string{"poller", "outcome"})
)

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeStale    = "stale"
	OutcomeTimeout  = "timeout"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

func recordTick(poller string) {
	ticksTotal.WithLabelValues(poller).Inc()
}

func setInterval(poller string, period time.Duration) {
	intervalSeconds.WithLabelValues(poller).Set(period.Seconds())
}

// RecordOutcome counts one poll result.
func RecordOutcome(poller, outcome string) {
	outcomesTotal.WithLabelValues(poller, outcome).Inc()
}
