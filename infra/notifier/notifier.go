// Package notifier provides the status observers used by the assistant: a
// logging notifier, a bus notifier for out-of-band consumers, and a fan-out
// combinator that enforces the "never panics back" contract.
package notifier

import (
	"time"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/events"
	"github.com/kestrelhq/kestrel/core/logger"
	"github.com/kestrelhq/kestrel/core/model"
	"github.com/kestrelhq/kestrel/internal/eventbus"
)

// Log logs every component status transition.
type Log struct {
	log logger.Logger
}

func NewLog(log logger.Logger) *Log { return &Log{log: log} }

func (n *Log) Update(c component.Component, s model.Status) {
	n.log.Infof("component %s is now %s", c.Name(), s)
}

// Bus publishes transitions on the event bus so observers like the metrics
// collector can consume them off the polling goroutine.
type Bus struct {
	bus *eventbus.Bus[events.StatusEvent]
}

func NewBus(bus *eventbus.Bus[events.StatusEvent]) *Bus { return &Bus{bus: bus} }

func (n *Bus) Update(c component.Component, s model.Status) {
	n.bus.Publish(events.StatusEvent{Component: c.Name(), Status: s, Time: time.Now()})
}

// Multi fans each transition out to several notifiers. A panicking delegate
// is swallowed: notifier failures must never reach the caller's business
// logic.
type Multi struct {
	delegates []component.Notifier
	log       logger.Logger
}

func NewMulti(log logger.Logger, delegates ...component.Notifier) *Multi {
	if log == nil {
		log = logger.Nop{}
	}
	return &Multi{delegates: delegates, log: log}
}

func (n *Multi) Update(c component.Component, s model.Status) {
	for _, d := range n.delegates {
		n.update(d, c, s)
	}
}

func (n *Multi) update(d component.Notifier, c component.Component, s model.Status) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Errorf("notifier panic for %s: %v", c.Name(), r)
		}
	}()
	d.Update(c, s)
}
