package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kestrelhq/kestrel/core/dispatch"
	"github.com/kestrelhq/kestrel/core/metrics"
)

// ComponentSpec names a registered component type and its parameters.
type ComponentSpec struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// ComponentsConfig lists the components to instantiate, in order.
type ComponentsConfig struct {
	Inputs   []ComponentSpec `json:"inputs"`
	Outputs  []ComponentSpec `json:"outputs"`
	Services []ComponentSpec `json:"services"`
}

type Config struct {
	Dispatch   dispatch.Config  `json:"dispatch"`
	Components ComponentsConfig `json:"components"`
	Metrics    metrics.Config   `json:"metrics"`
	Transcript TranscriptConfig `json:"transcript"`
}

// Load reads the configuration file (yaml or json by extension), applies
// KESTREL_-prefixed environment overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. KESTREL_METRICS__PROMETHEUS_ADDR.
	if err := k.Load(env.Provider("KESTREL_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "kestrel_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Dispatch.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Transcript.SetDefaults()
	if err := cfg.Dispatch.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Transcript.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
