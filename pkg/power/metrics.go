package power

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	shutdownSignalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virtpower_shutdown_signals_total",
		Help: "Total number of graceful shutdown signals sent to guests.",
	})

	powerOffOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virtpower_poweroff_outcomes_total",
		Help: "Power-off monitor outcomes, partitioned by result.",
	}, []string{"result"})

	cleanShutdownSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "virtpower_clean_shutdown_seconds",
		Help:    "Seconds a guest took to reach a terminal state after the first shutdown signal.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

const (
	outcomeClean    = "clean"
	outcomeTimedOut = "timed_out"
)

func observeOutcome(out Outcome) Outcome {
	if out.Succeeded {
		powerOffOutcomesTotal.WithLabelValues(outcomeClean).Inc()
		cleanShutdownSeconds.Observe(float64(out.Elapsed))
	} else {
		powerOffOutcomesTotal.WithLabelValues(outcomeTimedOut).Inc()
	}

	return out
}
