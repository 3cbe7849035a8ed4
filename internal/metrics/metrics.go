package metrics

import (
	"time"

	"github.com/limaJavier/mipschedule/pkg/mip"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mipschedule"

// Recorder collects the model size and the solve outcomes of the runs of one backend on its own registry
type Recorder struct {
	backend  string
	registry *prometheus.Registry

	solves      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	variables   prometheus.Gauge
	constraints prometheus.Gauge
}

func NewRecorder(backend string) *Recorder {
	recorder := &Recorder{
		backend:  backend,
		registry: prometheus.NewRegistry(),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Number of solves by backend and status.",
		}, []string{"backend", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Time spent in the solver backend.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"backend"}),
		variables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_variables",
			Help:      "Variables of the last built model.",
		}),
		constraints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_constraints",
			Help:      "Constraints of the last built model.",
		}),
	}
	recorder.registry.MustRegister(recorder.solves, recorder.duration, recorder.variables, recorder.constraints)
	return recorder
}

func (recorder *Recorder) RecordModel(variables, constraints int) {
	recorder.variables.Set(float64(variables))
	recorder.constraints.Set(float64(constraints))
}

func (recorder *Recorder) RecordSolve(status mip.Status, duration time.Duration) {
	recorder.solves.WithLabelValues(recorder.backend, status.String()).Inc()
	recorder.duration.WithLabelValues(recorder.backend).Observe(duration.Seconds())
}

func (recorder *Recorder) Registry() *prometheus.Registry {
	return recorder.registry
}

// WriteFile dumps every metric in the text exposition format, for the node exporter's textfile collector
func (recorder *Recorder) WriteFile(filename string) error {
	return prometheus.WriteToTextfile(filename, recorder.registry)
}
