package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Maple St")
	cfg.Parties = append(cfg.Parties,
		Party{Name: "Uma Lo", Share: 1, Aliases: []string{"U. Lo", "Uma"}},
		Party{Name: "Bo Chen", Share: 1},
	)
	cfg.Inbox.Mongo = MongoConfig{URI: "mongodb://localhost:27017", Database: "notify", Collection: "payments"}

	path := filepath.Join(t.TempDir(), "rentbook.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Household.Name, got.Household.Name)
	assert.Equal(t, cfg.Database.Path, got.Database.Path)
	assert.Equal(t, cfg.Classification.AutoApprovePriority, got.Classification.AutoApprovePriority)
	require.Len(t, got.Classification.ConfidenceTiers, 3)
	assert.InDelta(t, 0.95, got.Classification.ConfidenceTiers[0].Confidence, 0.001)
	require.Len(t, got.Parties, 3)
	assert.Equal(t, []string{"U. Lo", "Uma"}, got.Parties[1].Aliases)
	assert.True(t, got.Parties[0].Owner)
	assert.InDelta(t, cfg.Matching.Weights.Amount, got.Matching.Weights.Amount, 0.001)
	assert.InDelta(t, cfg.Matching.HighThreshold, got.Matching.HighThreshold, 0.001)
	assert.Equal(t, "payments", got.Inbox.Mongo.Collection)
	assert.Equal(t, cfg.Git.AuthorEmail, got.Git.AuthorEmail)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Maple St")

	assert.Equal(t, "Maple St", cfg.Household.Name)
	assert.Equal(t, "rentbook.db", cfg.Database.Path)
	assert.Equal(t, 100, cfg.Classification.AutoApprovePriority)
	assert.InDelta(t, 0.85, cfg.Matching.HighThreshold, 0.001)
	assert.InDelta(t, 0.40, cfg.Matching.LowThreshold, 0.001)
	assert.InDelta(t, 1.0, cfg.Matching.ReferenceBonus, 0.001)
	assert.Equal(t, 3, cfg.Matching.ReviewCandidates)
	assert.True(t, cfg.Git.AutoCommit)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"duplicate party", func(c *Config) {
			c.Parties = append(c.Parties, Party{Name: "owner", Share: 1})
		}, "same tracking name"},
		{"slug collision", func(c *Config) {
			c.Parties = append(c.Parties, Party{Name: "Zo e", Share: 1}, Party{Name: "Zoe", Share: 1})
		}, "same tracking name as \"Zo e\""},
		{"punctuation-only name", func(c *Config) {
			c.Parties = append(c.Parties, Party{Name: "...", Share: 1})
		}, "at least one letter or digit"},
		{"zero share", func(c *Config) {
			c.Parties = append(c.Parties, Party{Name: "Uma", Share: 0})
		}, "share must be positive"},
		{"two owners", func(c *Config) {
			c.Parties = append(c.Parties, Party{Name: "Bo", Share: 1, Owner: true})
		}, "at most one owner"},
		{"inverted thresholds", func(c *Config) {
			c.Matching.LowThreshold = 0.9
		}, "above high_threshold"},
		{"zero half life", func(c *Config) {
			c.Matching.HalfLifeDays = 0
		}, "half_life_days"},
		{"bad confidence", func(c *Config) {
			c.Classification.ConfidenceTiers[0].Confidence = 1.5
		}, "outside [0,1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("x")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_DistinctUnicodeNames(t *testing.T) {
	cfg := Default("x")
	cfg.Parties = append(cfg.Parties,
		Party{Name: "Zoë", Share: 1},
		Party{Name: "Zoé", Share: 1},
		Party{Name: "李明", Share: 1},
	)
	assert.NoError(t, cfg.Validate())
}

func TestPayers(t *testing.T) {
	cfg := Default("x")
	cfg.Parties = append(cfg.Parties, Party{Name: "Uma Lo", Share: 1}, Party{Name: "Bo Chen", Share: 1})

	payers := cfg.Payers()
	require.Len(t, payers, 2)
	assert.Equal(t, "Uma Lo", payers[0].Name)
	assert.Equal(t, "Bo Chen", payers[1].Name)
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Maple St")
	path := filepath.Join(t.TempDir(), "rentbook.yaml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Maple St")
	assert.Contains(t, contents, "auto_approve_priority: 100")
	assert.Contains(t, contents, "high_threshold: 0.85")
	assert.Contains(t, contents, "auto_commit: true")
}
