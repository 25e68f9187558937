// Package config loads the tblmgrd configuration file.
package config

import "time"

// Config is the top-level typed configuration.
type Config struct {
	Device      uint32 `toml:"device"`
	Backend     string `toml:"backend"` // "ebpf" (default) or "memory"
	P4Info      string `toml:"p4info"`  // p4info text file
	MetricsAddr string `toml:"metrics_addr"`
	// MaxAttachments bounds the resources a table may bind, 0 for the
	// catalog default.
	MaxAttachments int `toml:"max_attachments"`

	Dataplane DataplaneConfig `toml:"dataplane"`

	// Idle holds idle-time settings by table name.
	Idle map[string]IdleConfig `toml:"idle"`

	Warnings []string `toml:"-"` // non-fatal validation warnings
}

// DataplaneConfig holds eBPF backend settings.
type DataplaneConfig struct {
	PinPath       string   `toml:"pin_path"`
	MaxEntries    uint32   `toml:"max_entries"`
	AgingInterval Duration `toml:"aging_interval"` // 0=default(1s)
}

// IdleConfig is the idle-time section of one table.
type IdleConfig struct {
	Mode          string   `toml:"mode"` // "notify" or "poll"
	QueryInterval Duration `toml:"query_interval"`
	MinTTL        uint32   `toml:"min_ttl"` // milliseconds
	MaxTTL        uint32   `toml:"max_ttl"` // milliseconds
}

// Duration is a time.Duration written as a Go duration string ("500ms").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
