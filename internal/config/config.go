// Package config loads the hearth policy file. Everything here is a
// tunable evaluation knob; tasks and lists live in the store, not here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a hearth project.
type Config struct {
	Version int `yaml:"version"`

	// HistoryCap bounds how many completion records are kept per task.
	HistoryCap int `yaml:"history_cap,omitempty"`

	// GracePercent is the share of an elapsed interval (as a percentage)
	// a completion may be early or late and still preserve the streak.
	GracePercent int `yaml:"grace_percent,omitempty"`

	// AtRiskMarginHours is how close to a deadline a streak must be
	// before it counts as at risk.
	AtRiskMarginHours int `yaml:"at_risk_margin_hours,omitempty"`

	// PeopleMatch selects people-requirement semantics: "intersect"
	// (at least one configured person present) or "subset" (all present).
	PeopleMatch string `yaml:"people_match,omitempty"`

	// DefaultLocation is the location assumed while someone is present.
	DefaultLocation string `yaml:"default_location,omitempty"`

	// DefaultTimeEstimate is the estimate (minutes) suggested for new
	// tasks when none is given. Zero leaves tasks unestimated.
	DefaultTimeEstimate int `yaml:"default_time_estimate,omitempty"`
}

// DefaultConfig returns the stock policy.
func DefaultConfig() *Config {
	return &Config{
		Version:             1,
		HistoryCap:          365,
		GracePercent:        20,
		AtRiskMarginHours:   24,
		PeopleMatch:         "intersect",
		DefaultLocation:     "home",
		DefaultTimeEstimate: 30,
	}
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) validate() error {
	if c.HistoryCap <= 0 {
		return fmt.Errorf("history_cap must be positive, got %d", c.HistoryCap)
	}
	if c.GracePercent < 0 || c.GracePercent >= 100 {
		return fmt.Errorf("grace_percent must be in [0, 100), got %d", c.GracePercent)
	}
	if c.AtRiskMarginHours <= 0 {
		return fmt.Errorf("at_risk_margin_hours must be positive, got %d", c.AtRiskMarginHours)
	}
	if c.PeopleMatch != "intersect" && c.PeopleMatch != "subset" {
		return fmt.Errorf("people_match must be 'intersect' or 'subset', got %q", c.PeopleMatch)
	}
	if c.DefaultTimeEstimate < 0 {
		return fmt.Errorf("default_time_estimate must not be negative, got %d", c.DefaultTimeEstimate)
	}
	return nil
}
