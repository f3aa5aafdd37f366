// Package catalog reads reference data (syndromes, symptom links and rule
// constraints) from a YAML document and serves it from memory.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Skufu/ddxengine/internal/inference"
)

type Catalog struct {
	Syndromes   []Syndrome   `yaml:"syndromes"`
	Links       []Link       `yaml:"links"`
	Constraints []Constraint `yaml:"constraints"`
}

type Syndrome struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Link struct {
	Syndrome string  `yaml:"syndrome"`
	Symptom  string  `yaml:"symptom"`
	Weight   float64 `yaml:"weight"`
	Polarity string  `yaml:"polarity"` // support|contra, empty means support
}

type Constraint struct {
	ID         string      `yaml:"id"`
	Syndrome   string      `yaml:"syndrome"`
	Type       string      `yaml:"type"` // exclude|required|incompatibility
	Message    string      `yaml:"message"`
	Conditions []Condition `yaml:"conditions"`
}

type Condition struct {
	Symptom  string `yaml:"symptom"`
	Operator string `yaml:"operator"` // present|absent
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids, weights, enums and references between sections.
func (c *Catalog) Validate() error {
	known := make(map[string]bool, len(c.Syndromes))
	for i, s := range c.Syndromes {
		if s.ID == "" {
			return fmt.Errorf("syndromes[%d]: id is required", i)
		}
		if known[s.ID] {
			return fmt.Errorf("syndromes[%d]: duplicate id %q", i, s.ID)
		}
		known[s.ID] = true
	}

	pairs := make(map[string]bool, len(c.Links))
	for i, l := range c.Links {
		if l.Symptom == "" {
			return fmt.Errorf("links[%d]: symptom is required", i)
		}
		if !known[l.Syndrome] {
			return fmt.Errorf("links[%d]: unknown syndrome %q", i, l.Syndrome)
		}
		pair := l.Syndrome + "\x00" + l.Symptom
		if pairs[pair] {
			return fmt.Errorf("links[%d]: duplicate link %q/%q", i, l.Syndrome, l.Symptom)
		}
		pairs[pair] = true
		if l.Weight < 0 {
			return fmt.Errorf("links[%d]: weight must be >= 0, got %v", i, l.Weight)
		}
		switch inference.Polarity(l.Polarity) {
		case "", inference.Support, inference.Contra:
		default:
			return fmt.Errorf("links[%d]: invalid polarity %q", i, l.Polarity)
		}
	}

	ids := make(map[string]bool, len(c.Constraints))
	for i, rc := range c.Constraints {
		if rc.ID == "" {
			return fmt.Errorf("constraints[%d]: id is required", i)
		}
		if ids[rc.ID] {
			return fmt.Errorf("constraints[%d]: duplicate id %q", i, rc.ID)
		}
		ids[rc.ID] = true
		if !known[rc.Syndrome] {
			return fmt.Errorf("constraints[%d]: unknown syndrome %q", i, rc.Syndrome)
		}
		switch inference.RuleType(rc.Type) {
		case inference.RuleExclude, inference.RuleRequired, inference.RuleIncompatibility:
		default:
			return fmt.Errorf("constraints[%d]: invalid type %q", i, rc.Type)
		}
		for j, cond := range rc.Conditions {
			if cond.Symptom == "" {
				return fmt.Errorf("constraints[%d].conditions[%d]: symptom is required", i, j)
			}
			switch inference.Operator(cond.Operator) {
			case inference.OpPresent, inference.OpAbsent:
			default:
				return fmt.Errorf("constraints[%d].conditions[%d]: invalid operator %q", i, j, cond.Operator)
			}
		}
	}
	return nil
}

// InferenceLinks converts the catalog links into engine links.
func (c *Catalog) InferenceLinks() []inference.Link {
	out := make([]inference.Link, len(c.Links))
	for i, l := range c.Links {
		out[i] = inference.Link{
			SyndromeID: l.Syndrome,
			SymptomID:  l.Symptom,
			Weight:     l.Weight,
			Polarity:   inference.ParsePolarity(l.Polarity),
		}
	}
	return out
}

// InferenceConstraints converts the catalog constraints into engine constraints.
func (c *Catalog) InferenceConstraints() []inference.RuleConstraint {
	out := make([]inference.RuleConstraint, len(c.Constraints))
	for i, rc := range c.Constraints {
		conds := make([]inference.RuleCondition, len(rc.Conditions))
		for j, cond := range rc.Conditions {
			conds[j] = inference.RuleCondition{
				SymptomID: cond.Symptom,
				Operator:  inference.Operator(cond.Operator),
			}
		}
		out[i] = inference.RuleConstraint{
			ID:         rc.ID,
			SyndromeID: rc.Syndrome,
			RuleType:   inference.RuleType(rc.Type),
			Message:    rc.Message,
			Conditions: conds,
		}
	}
	return out
}
