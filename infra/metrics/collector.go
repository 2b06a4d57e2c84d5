package metrics

import (
	"context"

	"github.com/kestrelhq/kestrel/core/events"
	coremetrics "github.com/kestrelhq/kestrel/core/metrics"
	"github.com/kestrelhq/kestrel/internal/eventbus"
)

// StartStatusCollector subscribes to the status event bus and forwards
// transitions to sinks that track component status. It stops when the
// context is cancelled or the bus closes.
func StartStatusCollector(ctx context.Context, bus *eventbus.Bus[events.StatusEvent], sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.StatusRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, open := <-sub:
				if !open {
					return
				}
				_ = rec.RecordStatus(ev.Component, ev.Status)
			}
		}
	}()
}
