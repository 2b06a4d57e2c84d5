package model

// Status describes the lifecycle state of a component.
type Status int32

const (
	StatusInitializing Status = iota
	StatusIdle
	StatusActive
	StatusWorking
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initialising"
	case StatusIdle:
		return "idle"
	case StatusActive:
		return "active"
	case StatusWorking:
		return "working"
	default:
		return "unknown"
	}
}
