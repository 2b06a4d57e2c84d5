// Package events defines the values published on the internal event bus.
package events

import (
	"time"

	"github.com/kestrelhq/kestrel/core/model"
)

// StatusEvent reports a component status transition.
type StatusEvent struct {
	Component string
	Status    model.Status
	Time      time.Time
}
