// Package metrics exposes layout engine activity as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Run start reasons
const (
	RunFresh       = "fresh"
	RunIncremental = "incremental"
	RunEdges       = "edges"
	RunNodes       = "nodes"
	RunViewport    = "viewport"
	RunReheat      = "reheat"
)

// Collector records simulation, normalization and publishing activity. A nil
// *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks              prometheus.Counter
	Runs               *prometheus.CounterVec
	Alpha              prometheus.Gauge
	Bodies             prometheus.Gauge
	IterationsToHalt   prometheus.Histogram
	Diagnostics        *prometheus.CounterVec
	SnapshotsPublished prometheus.Counter
}

// New registers the layout metrics against reg. A nil reg uses the default
// registerer. Registering twice on the same registry reuses the existing
// collectors.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "versegraph_ticks_total",
		Help: "Simulation ticks executed.",
	}), "versegraph_ticks_total")
	if err != nil {
		return nil, err
	}

	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "versegraph_runs_total",
		Help: "Simulation runs started or resumed, by reason.",
	}, []string{"reason"}), "versegraph_runs_total")
	if err != nil {
		return nil, err
	}

	alpha, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "versegraph_alpha",
		Help: "Current simulation temperature.",
	}), "versegraph_alpha")
	if err != nil {
		return nil, err
	}

	bodies, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "versegraph_bodies",
		Help: "Nodes in the current simulation.",
	}), "versegraph_bodies")
	if err != nil {
		return nil, err
	}

	iterations, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "versegraph_iterations_to_halt",
		Help:    "Ticks a run took before it converged or hit the iteration cap.",
		Buckets: []float64{10, 25, 50, 100, 150, 200, 250, 300, 500},
	}), "versegraph_iterations_to_halt")
	if err != nil {
		return nil, err
	}

	diagnostics, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "versegraph_normalization_diagnostics_total",
		Help: "Input elements repaired or dropped during normalization, by kind.",
	}, []string{"kind"}), "versegraph_normalization_diagnostics_total")
	if err != nil {
		return nil, err
	}

	snapshots, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "versegraph_snapshots_published_total",
		Help: "Position snapshots delivered to subscribers.",
	}), "versegraph_snapshots_published_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		Ticks:              ticks,
		Runs:               runs,
		Alpha:              alpha,
		Bodies:             bodies,
		IterationsToHalt:   iterations,
		Diagnostics:        diagnostics,
		SnapshotsPublished: snapshots,
	}, nil
}

// Gatherer returns the gatherer paired with the registerer
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTick records one tick at the temperature it left behind
func (c *Collector) ObserveTick(alpha float64) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.Alpha.Set(alpha)
}

// RunStarted records a run start and the number of bodies it simulates
func (c *Collector) RunStarted(reason string, bodies int) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(reason).Inc()
	c.Bodies.Set(float64(bodies))
}

// RunHalted records how many ticks a finished run took
func (c *Collector) RunHalted(iterations int) {
	if c == nil {
		return
	}
	c.IterationsToHalt.Observe(float64(iterations))
}

// Reset clears the per-run gauges after a teardown
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.Alpha.Set(0)
	c.Bodies.Set(0)
}

// ObserveDiagnostic counts one normalization repair
func (c *Collector) ObserveDiagnostic(kind string) {
	if c == nil {
		return
	}
	c.Diagnostics.WithLabelValues(kind).Inc()
}

// ObserveSnapshot counts one published snapshot
func (c *Collector) ObserveSnapshot() {
	if c == nil {
		return
	}
	c.SnapshotsPublished.Inc()
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T, name string) (T, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return collector, nil
}
