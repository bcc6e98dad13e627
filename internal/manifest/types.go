package manifest

import (
	"fmt"
	"strings"
)

// Config is a parsed target list
type Config struct {
	Targets []string `yaml:"targets" json:"targets"`
	Options Options  `yaml:"options" json:"options"`
}

// Options override configuration for every target in the list
type Options struct {
	Headers  []string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Branches []string `yaml:"branches,omitempty" json:"branches,omitempty"`
	Workers  int      `yaml:"workers,omitempty" json:"workers,omitempty"`
	Output   string   `yaml:"output,omitempty" json:"output,omitempty"`
}

// Validate checks that the list names at least one non-empty target
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTargets
	}
	for i, target := range c.Targets {
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("target %d: %w", i, ErrEmptyTarget)
		}
	}
	return nil
}
