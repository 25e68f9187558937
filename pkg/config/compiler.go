package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/dataplane"
	"github.com/psaab/tblmgr/pkg/idle"
)

// DefaultAgingInterval is the sweep interval when none is configured.
const DefaultAgingInterval = time.Second

// Load reads and compiles the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses raw TOML, fills defaults and validates the result.
// Unknown keys are rejected.
func Decode(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(cfg); err != nil {
		return nil, err
	}
	if cfg.Backend == "" {
		cfg.Backend = dataplane.TypeEBPF
	}
	if cfg.Dataplane.AgingInterval.Duration == 0 {
		cfg.Dataplane.AgingInterval.Duration = DefaultAgingInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Warnings = ValidateConfig(cfg)
	return cfg, nil
}

// Validate rejects settings the daemon cannot start with.
func (c *Config) Validate() error {
	switch c.Backend {
	case dataplane.TypeEBPF, dataplane.TypeMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.P4Info == "" {
		return fmt.Errorf("p4info is required")
	}
	if c.MaxAttachments < 0 || c.MaxAttachments > catalog.DefaultMaxResources {
		return fmt.Errorf("max_attachments %d out of range [0, %d]", c.MaxAttachments, catalog.DefaultMaxResources)
	}
	if c.Dataplane.AgingInterval.Duration < 0 {
		return fmt.Errorf("aging_interval must be positive")
	}
	for _, name := range c.idleTables() {
		ic := c.Idle[name]
		if _, err := idle.ParseMode(ic.Mode); err != nil {
			return fmt.Errorf("idle %s: %w", name, err)
		}
		if ic.MinTTL != 0 && ic.MaxTTL != 0 && ic.MinTTL > ic.MaxTTL {
			return fmt.Errorf("idle %s: min_ttl %d above max_ttl %d", name, ic.MinTTL, ic.MaxTTL)
		}
	}
	return nil
}

// ValidateConfig returns non-fatal warnings for settings that have no
// effect.
func ValidateConfig(c *Config) []string {
	var warnings []string
	if c.Backend == dataplane.TypeMemory {
		if c.Dataplane.PinPath != "" {
			warnings = append(warnings, "dataplane.pin_path is ignored by the memory backend")
		}
		if c.Dataplane.MaxEntries != 0 {
			warnings = append(warnings, "dataplane.max_entries is ignored by the memory backend")
		}
	}
	for _, name := range c.idleTables() {
		ic := c.Idle[name]
		if ic.Mode != "poll" && ic.QueryInterval.Duration != 0 {
			warnings = append(warnings, fmt.Sprintf(
				"idle %s: query_interval only applies to poll mode", name))
		}
	}
	return warnings
}

// IdleConfigs converts the idle sections to per-table idle settings.
func (c *Config) IdleConfigs() (map[string]idle.Config, error) {
	out := make(map[string]idle.Config, len(c.Idle))
	for name, ic := range c.Idle {
		mode, err := idle.ParseMode(ic.Mode)
		if err != nil {
			return nil, fmt.Errorf("idle %s: %w", name, err)
		}
		out[name] = idle.Config{
			Mode:          mode,
			QueryInterval: ic.QueryInterval.Duration,
			MinTTL:        ic.MinTTL,
			MaxTTL:        ic.MaxTTL,
		}
	}
	return out, nil
}

// DataplaneOptions returns the eBPF backend options.
func (c *Config) DataplaneOptions() dataplane.Options {
	return dataplane.Options{PinPath: c.Dataplane.PinPath, MaxEntries: c.Dataplane.MaxEntries}
}

func (c *Config) idleTables() []string {
	names := make([]string, 0, len(c.Idle))
	for name := range c.Idle {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
