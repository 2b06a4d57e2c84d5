package metrics

import (
	coremetrics "github.com/kestrelhq/kestrel/core/metrics"
	"github.com/kestrelhq/kestrel/core/model"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCycle forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordCycle(ev coremetrics.CycleEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordCycle(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordStatus forwards status transitions to the sinks that track them.
func (m *MultiSink) RecordStatus(component string, status model.Status) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.StatusRecorder); ok {
			if err := rec.RecordStatus(component, status); err != nil {
				return err
			}
		}
	}
	return nil
}
