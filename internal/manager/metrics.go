package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "speechd",
		Subsystem: "manager",
		Name:      "loads_total",
		Help:      "Total number of successful model loads",
	})

	loadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speechd",
		Subsystem: "manager",
		Name:      "load_failures_total",
		Help:      "Total number of failed model loads by error kind",
	}, []string{"kind"})

	evictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speechd",
		Subsystem: "manager",
		Name:      "evictions_total",
		Help:      "Total number of models evicted by policy",
	}, []string{"policy"})

	modelsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "speechd",
		Subsystem: "manager",
		Name:      "models_loaded",
		Help:      "Number of currently loaded models",
	})
)

func init() {
	prometheus.MustRegister(loadsTotal, loadFailures, evictionsTotal, modelsLoaded)
}
