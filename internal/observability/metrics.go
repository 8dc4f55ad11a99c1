package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PlannerCollector bundles the Prometheus metrics of a planning run. It
// satisfies scheduler.MetricsRecorder.
type PlannerCollector struct {
	gatherer prometheus.Gatherer

	Requirements       prometheus.Gauge
	TimeStep           prometheus.Gauge
	Selections         *prometheus.CounterVec
	SelectionScores    *prometheus.HistogramVec
	LinkAllocations    *prometheus.CounterVec
	CapacityRejections *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	Runs               prometheus.Counter
}

// NewPlannerCollector registers planner metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewPlannerCollector(reg prometheus.Registerer) (*PlannerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requirements, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_requirements",
		Help: "Number of requirements built from the target decks.",
	}))
	if err != nil {
		return nil, err
	}
	timeStep, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_time_step",
		Help: "Time step index currently being planned.",
	}))
	if err != nil {
		return nil, err
	}

	selections, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_mvr_selections_total",
		Help: "Most valuable region selections, labeled by pass and sensor.",
	}, []string{"pass", "sensor"}))
	if err != nil {
		return nil, err
	}
	scores, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_achievable_score",
		Help:    "Achievable score of each selected region, labeled by pass.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"pass"}))
	if err != nil {
		return nil, err
	}

	allocations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_link_allocations_total",
		Help: "Link time steps granted, labeled by user antenna.",
	}, []string{"antenna"}))
	if err != nil {
		return nil, err
	}
	rejections, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_capacity_rejections_total",
		Help: "Link time steps refused for lack of antenna capacity, labeled by user antenna.",
	}, []string{"antenna"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_run_duration_seconds",
		Help:    "Wall-clock duration of complete planning runs.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}))
	if err != nil {
		return nil, err
	}
	runs, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_runs_total",
		Help: "Completed planning runs.",
	}))
	if err != nil {
		return nil, err
	}

	return &PlannerCollector{
		gatherer:           gatherer,
		Requirements:       requirements,
		TimeStep:           timeStep,
		Selections:         selections,
		SelectionScores:    scores,
		LinkAllocations:    allocations,
		CapacityRejections: rejections,
		RunDuration:        duration,
		Runs:               runs,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PlannerCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PlannerCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

func (c *PlannerCollector) SetRequirements(n int) {
	if c == nil {
		return
	}
	c.Requirements.Set(float64(n))
}

func (c *PlannerCollector) SetTimeStep(timeIndex int) {
	if c == nil {
		return
	}
	c.TimeStep.Set(float64(timeIndex))
}

// ObserveSelection counts one region selection and records its score.
func (c *PlannerCollector) ObserveSelection(pass, sensor string, score float64) {
	if c == nil {
		return
	}
	c.Selections.WithLabelValues(pass, sensor).Inc()
	c.SelectionScores.WithLabelValues(pass).Observe(score)
}

func (c *PlannerCollector) IncLinkAllocation(antenna string) {
	if c == nil {
		return
	}
	c.LinkAllocations.WithLabelValues(antenna).Inc()
}

func (c *PlannerCollector) IncCapacityRejection(antenna string) {
	if c == nil {
		return
	}
	c.CapacityRejections.WithLabelValues(antenna).Inc()
}

// ObserveRun records one completed planning run.
func (c *PlannerCollector) ObserveRun(d time.Duration) {
	if c == nil {
		return
	}
	c.RunDuration.Observe(d.Seconds())
	c.Runs.Inc()
}
