// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// Package gmpe holds the ground motion model selection sets. A set
// names the models appropriate for a tectonic environment together
// with their logic-tree weights; the models themselves are evaluated
// elsewhere.
package gmpe

import (
	_ "embed"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed sets/gmpe_sets.yaml
var setsYAML []byte

// DefaultSet is used when an event does not select a tectonic
// environment.
const DefaultSet = "nshmp14_acr"

// Set is a weighted selection of ground motion models.
type Set struct {
	Name             string
	Description      string    `yaml:"description"`
	GMPEs            []string  `yaml:"gmpes"`
	Weights          []float64 `yaml:"weights"`
	WeightsLargeDist []float64 `yaml:"weights_large_dist"`
	DistCutoff       float64   `yaml:"dist_cutoff"`
	SiteGMPEs        []string  `yaml:"site_gmpes"`
}

// Validate checks the internal consistency of a set.
func (s *Set) Validate() error {
	if len(s.GMPEs) == 0 {
		return fmt.Errorf("gmpe set %q names no models", s.Name)
	}
	if len(s.Weights) != len(s.GMPEs) {
		return fmt.Errorf("gmpe set %q has %d models but %d weights",
			s.Name, len(s.GMPEs), len(s.Weights))
	}
	var sum float64
	for _, w := range s.Weights {
		if w < 0 {
			return fmt.Errorf("gmpe set %q has a negative weight", s.Name)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("gmpe set %q weights sum to %g, want 1", s.Name, sum)
	}
	if len(s.WeightsLargeDist) > 0 {
		if len(s.WeightsLargeDist) != len(s.GMPEs) {
			return fmt.Errorf("gmpe set %q large-distance weights do not match models", s.Name)
		}
		if s.DistCutoff <= 0 {
			return fmt.Errorf("gmpe set %q has large-distance weights but no cutoff", s.Name)
		}
	}
	return nil
}

// WeightsAt returns the model weights applicable at the given
// source-to-site distance in km.
func (s *Set) WeightsAt(dist float64) []float64 {
	if len(s.WeightsLargeDist) > 0 && s.DistCutoff > 0 && dist > s.DistCutoff {
		return s.WeightsLargeDist
	}
	return s.Weights
}

// Registry resolves set names to their definitions.
type Registry struct {
	sets map[string]*Set
}

type setsFile struct {
	Sets map[string]*Set `yaml:"gmpe_sets"`
}

// NewRegistry loads the built-in set definitions.
func NewRegistry() (*Registry, error) {
	return newRegistryFromYAML(setsYAML)
}

func newRegistryFromYAML(raw []byte) (*Registry, error) {
	var f setsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing gmpe sets: %w", err)
	}
	if len(f.Sets) == 0 {
		return nil, fmt.Errorf("gmpe set file defines no sets")
	}
	for name, s := range f.Sets {
		s.Name = name
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return &Registry{sets: f.Sets}, nil
}

// Get returns the named set.
func (r *Registry) Get(name string) (*Set, error) {
	s, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("unknown gmpe set %q", name)
	}
	return s, nil
}

// Names returns the available set names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sets))
	for name := range r.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
