package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kestrelhq/kestrel/core/metrics"
	"github.com/kestrelhq/kestrel/core/model"
)

// PromSink records dispatch cycles and component status in Prometheus
// metrics.
type PromSink struct {
	cycles   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	status   *prometheus.GaugeVec
}

// NewPromSink registers the dispatch metrics on the default Prometheus
// registerer. The metrics server is started separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer. A
// nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_cycles_total",
		Help: "Total number of dispatch cycles by outcome",
	}, []string{"input", "outcome"})
	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_handler_errors_total",
		Help: "Total number of handler errors",
	}, []string{"input"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_cycle_duration_seconds",
		Help:    "Time spent handling one utterance",
		Buckets: prometheus.DefBuckets,
	}, []string{"input", "outcome"})
	status := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "component_status",
		Help: "Current component status (0=initialising 1=idle 2=active 3=working)",
	}, []string{"component"})

	if err := reg.Register(cycles); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			cycles = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(errors); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			errors = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(status); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			status = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{cycles: cycles, errors: errors, duration: duration, status: status}, nil
}

// RecordCycle increments the counters for one dispatch cycle.
func (s *PromSink) RecordCycle(ev coremetrics.CycleEvent) error {
	s.cycles.WithLabelValues(ev.Input, string(ev.Outcome)).Inc()
	s.duration.WithLabelValues(ev.Input, string(ev.Outcome)).Observe(ev.Duration.Seconds())
	if ev.HandlerErrors > 0 {
		s.errors.WithLabelValues(ev.Input).Add(float64(ev.HandlerErrors))
	}
	return nil
}

// RecordStatus sets the component status gauge.
func (s *PromSink) RecordStatus(component string, status model.Status) error {
	s.status.WithLabelValues(component).Set(float64(status))
	return nil
}
