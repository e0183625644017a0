// Package config loads the host tool's YAML profile: bridge link settings
// plus per-port alert bands.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voltmon/core"
	"voltmon/host/serial"
)

type Config struct {
	Bridge  BridgeConfig   `yaml:"bridge"`
	Buffers []BufferConfig `yaml:"buffers"`
}

// BridgeConfig is the serial link section.
type BridgeConfig struct {
	Device    string `yaml:"device"`
	Baud      int    `yaml:"baud"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// BufferConfig is one port's alert profile. Low and high are millivolt
// thresholds; Disabled parks the port's alert instead, in which case the
// thresholds are ignored.
type BufferConfig struct {
	Port     string          `yaml:"port"`
	LowMV    core.Millivolts `yaml:"low_mv"`
	HighMV   core.Millivolts `yaml:"high_mv"`
	Disabled bool            `yaml:"disabled"`
}

// Load parses a YAML profile and fills in missing bridge settings with
// defaults.
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadFile reads and parses a YAML profile from disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// applyDefaults fills in missing bridge settings with the values a
// USB-attached adapter wants.
func applyDefaults(cfg *Config) {
	if cfg.Bridge.Device == "" {
		cfg.Bridge.Device = "/dev/ttyACM0"
	}
	if cfg.Bridge.Baud == 0 {
		cfg.Bridge.Baud = 115200
	}
	if cfg.Bridge.TimeoutMs == 0 {
		cfg.Bridge.TimeoutMs = 50
	}
}

// Validate checks the profile without touching hardware, so bad port names,
// duplicate ports and threshold violations fail before any bus traffic.
// It does not mutate the configuration.
func Validate(cfg *Config) error {
	seen := make(map[core.BufferMask]int)
	for i, b := range cfg.Buffers {
		mask, err := core.ParsePort(b.Port)
		if err != nil {
			return fmt.Errorf("buffers[%d]: %w", i, err)
		}
		if prev, dup := seen[mask]; dup {
			return fmt.Errorf("buffers[%d]: port %s already configured by buffers[%d]", i, mask, prev)
		}
		seen[mask] = i

		if b.Disabled {
			continue
		}
		if b.LowMV > core.MaxVoltage || b.HighMV > core.MaxVoltage {
			return fmt.Errorf("buffers[%d]: thresholds %d..%d mV above %d mV limit",
				i, b.LowMV, b.HighMV, core.MaxVoltage)
		}
		if b.LowMV > b.HighMV {
			return fmt.Errorf("buffers[%d]: low %d mV above high %d mV", i, b.LowMV, b.HighMV)
		}
		if b.LowMV == 0 && b.HighMV == core.MaxVoltage {
			return fmt.Errorf("buffers[%d]: the full-range band is the disabled state; set disabled: true", i)
		}
	}
	return nil
}

// SerialConfig renders the bridge section as serial port settings.
func (c *Config) SerialConfig() *serial.Config {
	return &serial.Config{
		Device:      c.Bridge.Device,
		Baud:        c.Bridge.Baud,
		ReadTimeout: c.Bridge.TimeoutMs,
	}
}
