// Package rules holds the ordered classification rule set and its YAML file.
package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/rentbook/internal/model"
)

// RelPath is the rule file location inside a project.
const RelPath = "rules/classification-rules.yaml"

// ErrNotFound is returned when a rule ID does not exist.
var ErrNotFound = errors.New("rule not found")

type file struct {
	Rules []model.Rule `yaml:"rules"`
}

// Set is the rule set in insertion order.
type Set struct {
	rules []model.Rule
}

// NewSet wraps rules that are already in insertion order.
func NewSet(rules []model.Rule) *Set {
	return &Set{rules: append([]model.Rule(nil), rules...)}
}

// Load reads the rule file under root. A missing file is an empty set.
func Load(root string) (*Set, error) {
	data, err := os.ReadFile(filepath.Join(root, RelPath))
	if errors.Is(err, os.ErrNotExist) {
		return NewSet(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes a rule file.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	seen := make(map[int]bool, len(f.Rules))
	for _, r := range f.Rules {
		if seen[r.ID] {
			return nil, fmt.Errorf("parsing rules: duplicate rule id %d", r.ID)
		}
		seen[r.ID] = true
	}
	return NewSet(f.Rules), nil
}

// Save writes the rule file under root.
func (s *Set) Save(root string) error {
	dir := filepath.Join(root, filepath.Dir(RelPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	rules := s.rules
	if rules == nil {
		rules = []model.Rule{}
	}
	data, err := yaml.Marshal(file{Rules: rules})
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, RelPath), data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}

// All returns every rule in insertion order.
func (s *Set) All() []model.Rule {
	return append([]model.Rule(nil), s.rules...)
}

// Get returns a rule by ID.
func (s *Set) Get(id int) (model.Rule, bool) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return model.Rule{}, false
}

// Add appends a rule, assigning the next ID. The rule is active.
func (s *Set) Add(r model.Rule) (model.Rule, error) {
	next := 1
	for _, existing := range s.rules {
		if existing.ID >= next {
			next = existing.ID + 1
		}
	}
	r.ID = next
	r.Active = true
	if err := r.Validate(); err != nil {
		return model.Rule{}, err
	}
	s.rules = append(s.rules, r)
	return r, nil
}

// SetActive flips a rule's active flag. Rules are never deleted.
func (s *Set) SetActive(id int, active bool) error {
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules[i].Active = active
			return nil
		}
	}
	return fmt.Errorf("rule %d: %w", id, ErrNotFound)
}

// Sorted returns active rules by priority, highest first. Equal priorities
// keep insertion order.
func (s *Set) Sorted() []model.Rule {
	var active []model.Rule
	for _, r := range s.rules {
		if r.Active {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})
	return active
}

// CategoryChecker tests whether a category exists in the chart.
type CategoryChecker interface {
	Exists(name string) bool
}

// Check validates every rule, including its category against the chart.
func (s *Set) Check(chart CategoryChecker) []error {
	var errs []error
	for _, r := range s.rules {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if r.Action == model.ActionCategorize && !chart.Exists(r.Category) {
			errs = append(errs, fmt.Errorf("rule %d: unknown category %q", r.ID, r.Category))
		}
	}
	return errs
}
