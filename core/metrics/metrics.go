// Package metrics defines the sink contract for engine observability. Sinks
// like the Prometheus and Influx exporters in infra/metrics record dispatch
// cycles and can be combined with a multi sink.
package metrics

import (
	"time"

	"github.com/kestrelhq/kestrel/core/model"
)

// CycleOutcome classifies what a dispatch cycle produced.
type CycleOutcome string

const (
	// OutcomeNoMatch means no key-phrase was heard; the batch was dropped.
	OutcomeNoMatch CycleOutcome = "no_match"
	// OutcomeApology means a key-phrase was heard but no service claimed it.
	OutcomeApology CycleOutcome = "apology"
	// OutcomeResponse means at least one handler produced text.
	OutcomeResponse CycleOutcome = "response"
	// OutcomeSilence means handlers ran but none produced text.
	OutcomeSilence CycleOutcome = "silence"
)

// CycleEvent describes one dispatch cycle.
type CycleEvent struct {
	Input         string
	Outcome       CycleOutcome
	Handlers      int
	HandlerErrors int
	Duration      time.Duration
	Time          time.Time
}

// Sink records dispatch cycles.
type Sink interface {
	RecordCycle(ev CycleEvent) error
}

// StatusRecorder is implemented by sinks that track component status.
type StatusRecorder interface {
	RecordStatus(component string, status model.Status) error
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) RecordCycle(CycleEvent) error { return nil }
