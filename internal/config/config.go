package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/rentbook/internal/id"
)

// Config represents the top-level rentbook.yaml configuration.
type Config struct {
	Household      HouseholdConfig      `yaml:"household"`
	Database       DatabaseConfig       `yaml:"database"`
	Classification ClassificationConfig `yaml:"classification"`
	Parties        []Party              `yaml:"parties"`
	Matching       MatchingConfig       `yaml:"matching"`
	Inbox          InboxConfig          `yaml:"inbox"`
	Git            GitConfig            `yaml:"git"`
}

// HouseholdConfig identifies the property.
type HouseholdConfig struct {
	Name string `yaml:"name"`
}

// DatabaseConfig locates the SQLite store, relative to the project root.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ClassificationConfig controls auto-commit behavior.
type ClassificationConfig struct {
	AutoApprovePriority int              `yaml:"auto_approve_priority"`
	ConfidenceTiers     []ConfidenceTier `yaml:"confidence_tiers"`
}

// ConfidenceTier maps a rule priority floor to a confidence score.
type ConfidenceTier struct {
	MinPriority int     `yaml:"min_priority"`
	Confidence  float64 `yaml:"confidence"`
}

// Party is one person sharing split-eligible bills.
type Party struct {
	Name    string   `yaml:"name"`
	Share   int      `yaml:"share"`           // relative weight, 1 = equal split
	Owner   bool     `yaml:"owner,omitempty"` // pays the bill, owes nothing
	Aliases []string `yaml:"aliases,omitempty"`
}

// MatchingConfig holds the confirmation scoring weights and thresholds.
type MatchingConfig struct {
	Weights          WeightsConfig `yaml:"weights"`
	ReferenceBonus   float64       `yaml:"reference_bonus"`
	HighThreshold    float64       `yaml:"high_threshold"`
	LowThreshold     float64       `yaml:"low_threshold"`
	HalfLifeDays     float64       `yaml:"half_life_days"`
	TemporalFloor    float64       `yaml:"temporal_floor"`
	IdentityFuzzyCap float64       `yaml:"identity_fuzzy_cap"`
	ReviewCandidates int           `yaml:"review_candidates"`
}

// WeightsConfig weighs the three similarity components.
type WeightsConfig struct {
	Amount   float64 `yaml:"amount"`
	Identity float64 `yaml:"identity"`
	Temporal float64 `yaml:"temporal"`
}

// InboxConfig locates confirmation feeds.
type InboxConfig struct {
	Mongo MongoConfig `yaml:"mongo,omitempty"`
}

// MongoConfig points at a collection of parsed payment notifications.
type MongoConfig struct {
	URI        string `yaml:"uri,omitempty"`
	Database   string `yaml:"database,omitempty"`
	Collection string `yaml:"collection,omitempty"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a rentbook.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(householdName string) *Config {
	return &Config{
		Household: HouseholdConfig{Name: householdName},
		Database:  DatabaseConfig{Path: "rentbook.db"},
		Classification: ClassificationConfig{
			AutoApprovePriority: 100,
			ConfidenceTiers: []ConfidenceTier{
				{MinPriority: 100, Confidence: 0.95},
				{MinPriority: 50, Confidence: 0.75},
				{MinPriority: 0, Confidence: 0.50},
			},
		},
		Parties: []Party{
			{Name: "Owner", Share: 1, Owner: true},
		},
		Matching: MatchingConfig{
			Weights: WeightsConfig{
				Amount:   0.45,
				Identity: 0.35,
				Temporal: 0.20,
			},
			ReferenceBonus:   1.0,
			HighThreshold:    0.85,
			LowThreshold:     0.40,
			HalfLifeDays:     14,
			TemporalFloor:    0.10,
			IdentityFuzzyCap: 0.50,
			ReviewCandidates: 3,
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Rentbook",
			AuthorEmail: "rentbook@localhost",
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	// Payers are keyed by their slug inside tracking IDs.
	seen := make(map[string]string)
	owners := 0
	for i, p := range c.Parties {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("parties[%d]: empty name", i))
			continue
		}
		slug := id.Slug(name)
		switch {
		case slug == "":
			errs = append(errs, fmt.Errorf("parties[%d] %q: name needs at least one letter or digit", i, name))
		case seen[slug] != "":
			errs = append(errs, fmt.Errorf("parties[%d] %q: same tracking name as %q", i, name, seen[slug]))
		default:
			seen[slug] = name
		}
		if p.Share <= 0 {
			errs = append(errs, fmt.Errorf("parties[%d] %s: share must be positive", i, name))
		}
		if p.Owner {
			owners++
		}
	}
	if owners > 1 {
		errs = append(errs, errors.New("parties: at most one owner"))
	}

	m := c.Matching
	if m.Weights.Amount < 0 || m.Weights.Identity < 0 || m.Weights.Temporal < 0 {
		errs = append(errs, errors.New("matching.weights: must be non-negative"))
	}
	if m.LowThreshold > m.HighThreshold {
		errs = append(errs, fmt.Errorf("matching: low_threshold %.2f above high_threshold %.2f", m.LowThreshold, m.HighThreshold))
	}
	if m.HalfLifeDays <= 0 {
		errs = append(errs, errors.New("matching.half_life_days: must be positive"))
	}

	for i, tier := range c.Classification.ConfidenceTiers {
		if tier.Confidence < 0 || tier.Confidence > 1 {
			errs = append(errs, fmt.Errorf("classification.confidence_tiers[%d]: confidence outside [0,1]", i))
		}
	}

	return errors.Join(errs...)
}

// Payers returns the parties that owe a share (everyone but the owner).
func (c *Config) Payers() []Party {
	var out []Party
	for _, p := range c.Parties {
		if !p.Owner {
			out = append(out, p)
		}
	}
	return out
}
