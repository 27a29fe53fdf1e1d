/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Programming holds station programming rules that change more often than code.
type Programming struct {
	// ShiftStartHours are the hours a DJ shift begins.
	ShiftStartHours []int `yaml:"shift_start_hours"`
	// HandoffHours are the shift starts that open with a DJ-to-DJ handoff.
	HandoffHours []int `yaml:"handoff_hours"`
	// Fillers supply values for generic {placeholder} keys in feature templates.
	Fillers map[string][]string `yaml:"fillers"`
}

// DefaultProgramming returns the built-in programming rules.
func DefaultProgramming() *Programming {
	return &Programming{
		ShiftStartHours: []int{6, 10, 15, 19},
		HandoffHours:    []int{10, 15, 19},
		Fillers:         map[string][]string{},
	}
}

// LoadProgramming reads the programming YAML at path. A missing file yields defaults;
// keys absent from the file keep their default values.
func LoadProgramming(path string) (*Programming, error) {
	p := DefaultProgramming()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("read programming file: %w", err)
	}

	return ParseProgramming(data)
}

// ParseProgramming decodes programming YAML on top of the defaults.
func ParseProgramming(data []byte) (*Programming, error) {
	p := DefaultProgramming()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse programming file: %w", err)
	}
	if p.Fillers == nil {
		p.Fillers = map[string][]string{}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks hour ranges.
func (p *Programming) Validate() error {
	for _, h := range p.ShiftStartHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("shift start hour %d out of range", h)
		}
	}
	for _, h := range p.HandoffHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("handoff hour %d out of range", h)
		}
	}
	return nil
}
