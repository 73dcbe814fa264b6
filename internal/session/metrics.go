package session

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "speechd",
		Subsystem: "session",
		Name:      "active",
		Help:      "Number of currently open streaming sessions",
	})

	sessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "speechd",
		Subsystem: "session",
		Name:      "started_total",
		Help:      "Total number of streaming sessions started",
	})

	utterancesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "speechd",
		Subsystem: "session",
		Name:      "utterances_total",
		Help:      "Total number of finalized utterances",
	})

	sessionsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "speechd",
		Subsystem: "session",
		Name:      "rejected_total",
		Help:      "Total number of sessions rejected at the concurrency limit",
	})
)

func init() {
	prometheus.MustRegister(sessionsActive, sessionsTotal, utterancesTotal, sessionsRejected)
}
