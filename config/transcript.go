package config

import "fmt"

// TranscriptConfig selects where dispatch-cycle audit records go. An empty
// backend disables the transcript entirely.
type TranscriptConfig struct {
	// Backend is "jsonl", "sqlite" or empty.
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *TranscriptConfig) SetDefaults() {
	if c.Backend != "" && c.Path == "" {
		c.Path = "transcript." + c.Backend
	}
}

// Validate checks the backend name.
func (c TranscriptConfig) Validate() error {
	switch c.Backend {
	case "", "jsonl", "sqlite":
		return nil
	default:
		return fmt.Errorf("unknown transcript backend %s", c.Backend)
	}
}
