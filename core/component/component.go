// Package component defines the contracts shared by every pluggable part of
// the system: inputs, outputs and services all have a start/stop lifecycle
// and report status transitions to a Notifier.
package component

import (
	"sync/atomic"

	"github.com/kestrelhq/kestrel/core/model"
)

// Component is a pluggable part of the system.
type Component interface {
	// Name is the display name used in logs and status reports.
	Name() string
	// Start performs one-time setup. An error here is fatal to startup.
	Start() error
	// Stop releases resources. Errors are logged and do not block shutdown.
	Stop() error
	// Status reports the component's current lifecycle state.
	Status() model.Status
}

// Input supplies token batches. Read must never block: it returns nil when
// nothing is pending, otherwise a non-empty batch.
type Input interface {
	Component
	Read() []model.Token
}

// Output delivers response text to the user.
type Output interface {
	Component
	Write(text string) error
}

// Notifier observes component status transitions. Implementations must
// tolerate components they have never seen before, must be cheap enough to
// call on every transition from the polling goroutine, and must not panic
// back into the caller.
type Notifier interface {
	Update(c Component, s model.Status)
}

// Base carries the identity and status plumbing every component needs.
// Concrete components embed it and report transitions through Notify.
type Base struct {
	name     string
	notifier Notifier
	status   atomic.Int32
}

// NewBase creates a Base in the Initializing state. The notifier is shared
// and may be nil, in which case transitions are recorded but not observed.
func NewBase(name string, notifier Notifier) *Base {
	b := &Base{name: name, notifier: notifier}
	b.status.Store(int32(model.StatusInitializing))
	return b
}

func (b *Base) Name() string { return b.name }

func (b *Base) Status() model.Status { return model.Status(b.status.Load()) }

// Start moves the component to Idle. Components with real setup override it
// and call Notify themselves.
func (b *Base) Start() error {
	b.Notify(model.StatusIdle)
	return nil
}

func (b *Base) Stop() error { return nil }

// Notify records the new status and forwards the transition to the notifier.
func (b *Base) Notify(s model.Status) {
	b.status.Store(int32(s))
	if b.notifier != nil {
		b.notifier.Update(b, s)
	}
}
