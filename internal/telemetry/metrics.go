package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"qrlsim/internal/model"
)

const namespace = "qrlsim"

// RunMetrics holds gauges describing the latest completed run. It uses its own
// registry so nothing leaks into the process-wide default.
type RunMetrics struct {
	registry   *prometheus.Registry
	fidelity   prometheus.Gauge
	meanPError prometheus.Gauge
	windows    prometheus.Gauge
	shots      prometheus.Gauge
	rewards    *prometheus.GaugeVec
	runs       *prometheus.CounterVec
}

func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		fidelity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fidelity",
			Help:      "Fidelity of the latest run, 1 - mean p_error.",
		}),
		meanPError: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_p_error",
			Help:      "Mean depolarizing probability across windows of the latest run.",
		}),
		windows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "windows",
			Help:      "Number of sliding windows in the latest run.",
		}),
		shots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shots",
			Help:      "Number of simulated shots in the latest run.",
		}),
		rewards: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rewards",
			Help:      "Reward counts of the latest run by reward value.",
		}, []string{"reward"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by backend.",
		}, []string{"backend"}),
	}
	m.registry.MustRegister(m.fidelity, m.meanPError, m.windows, m.shots, m.rewards, m.runs)
	return m
}

func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records a completed run.
func (m *RunMetrics) Observe(record model.RunRecord) {
	m.fidelity.Set(record.Fidelity)
	m.meanPError.Set(record.MeanPError)
	m.windows.Set(float64(len(record.Windows)))
	m.shots.Set(float64(record.Shots))
	for _, rc := range record.Rewards {
		m.rewards.WithLabelValues(rc.Reward.String()).Set(float64(rc.Count))
	}
	m.runs.WithLabelValues(record.Backend).Inc()
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
