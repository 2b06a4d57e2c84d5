package dispatch

import "fmt"

// Config tunes the dispatch engine.
type Config struct {
	// KeyPhrases are the wake phrases, e.g. "Hey Kestrel". Any one matching
	// routes the rest of the utterance to the services.
	KeyPhrases []string `json:"key_phrases"`
	// PollIntervalMS is the sleep between input sweeps.
	PollIntervalMS int `json:"poll_interval_ms"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PollIntervalMS == 0 {
		c.PollIntervalMS = 100
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if len(c.KeyPhrases) == 0 {
		return fmt.Errorf("at least one key phrase is required")
	}
	if c.PollIntervalMS < 0 {
		return fmt.Errorf("poll_interval_ms must be positive")
	}
	return nil
}
