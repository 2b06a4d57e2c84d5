// Package transcript persists per-cycle audit records: what was heard, which
// handlers ran and what was answered. The engine only ever appends; records
// are never fed back into dispatch.
package transcript

import (
	"context"
	"time"
)

// Record captures one handled dispatch cycle.
type Record struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Input     string          `json:"input"`
	Words     []string        `json:"words"`
	Offset    int             `json:"offset"`
	Handlers  []HandlerRecord `json:"handlers,omitempty"`
	Response  string          `json:"response,omitempty"`
	Apology   bool            `json:"apology,omitempty"`
}

// HandlerRecord captures the outcome of one ranked handler.
type HandlerRecord struct {
	Service   string  `json:"service"`
	Belief    float64 `json:"belief"`
	Invoked   bool    `json:"invoked"`
	Text      string  `json:"text,omitempty"`
	Exclusive bool    `json:"exclusive,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start   time.Time
	End     time.Time
	Input   string
	Service string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Input != "" && r.Input != q.Input {
		return false
	}
	if q.Service != "" {
		found := false
		for _, h := range r.Handlers {
			if h.Service == q.Service {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
