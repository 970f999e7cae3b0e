package model

import "fmt"

// Action is what the classifier decided to do with a transaction.
type Action string

const (
	ActionCategorize Action = "categorize"
	ActionExclude    Action = "exclude"
	ActionReview     Action = "review"
)

// Rule is one entry in the ordered classification rule set.
type Rule struct {
	ID          int    `yaml:"id"`
	Priority    int    `yaml:"priority"`
	Pattern     string `yaml:"pattern"`
	Category    string `yaml:"category,omitempty"`
	Action      Action `yaml:"action"`
	Active      bool   `yaml:"active"`
	Description string `yaml:"description,omitempty"`
}

// Validate checks the fields that do not depend on the category chart.
func (r Rule) Validate() error {
	if r.Pattern == "" {
		return fmt.Errorf("rule %d: empty pattern", r.ID)
	}
	switch r.Action {
	case ActionCategorize:
		if r.Category == "" {
			return fmt.Errorf("rule %d: categorize rule needs a category", r.ID)
		}
	case ActionExclude:
	default:
		return fmt.Errorf("rule %d: unknown action %q", r.ID, r.Action)
	}
	return nil
}
