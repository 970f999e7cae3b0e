package classify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/rentbook/internal/config"
	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/model"
)

var testOpts = Options{
	AutoApprovePriority: 100,
	Tiers: []config.ConfidenceTier{
		{MinPriority: 0, Confidence: 0.50},
		{MinPriority: 100, Confidence: 0.95},
		{MinPriority: 50, Confidence: 0.75},
	},
}

func rule(id, priority int, pattern, category string) model.Rule {
	return model.Rule{ID: id, Priority: priority, Pattern: pattern, Category: category, Action: model.ActionCategorize, Active: true}
}

func txn(desc, payee string) model.RawTransaction {
	return model.RawTransaction{
		PostedDate:  time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("-300.00"),
		Description: desc,
		Payee:       payee,
	}
}

func TestClassify_FirstMatchByPriority(t *testing.T) {
	c := New(context.Background(), []model.Rule{
		rule(1, 10, "web pay", "supplies"),
		rule(2, 100, "pge", "electricity"),
	}, testOpts)

	res := c.Classify(txn("PGE WEB PAY", ""))
	assert.Equal(t, 2, res.RuleID)
	assert.Equal(t, "electricity", res.Category)
	assert.Equal(t, model.ActionCategorize, res.Action)
	assert.True(t, res.Confidence.Equal(decimal.RequireFromString("0.95")))
	assert.True(t, res.Auto)
}

func TestClassify_CaseInsensitiveOverPayee(t *testing.T) {
	c := New(context.Background(), []model.Rule{rule(1, 100, "Pacific Gas", "electricity")}, testOpts)

	res := c.Classify(txn("WEB PMT 8812", "PACIFIC GAS & ELECTRIC"))
	assert.Equal(t, "electricity", res.Category)
}

func TestClassify_NoMatch(t *testing.T) {
	c := New(context.Background(), []model.Rule{rule(1, 100, "pge", "electricity")}, testOpts)

	res := c.Classify(txn("COSTCO WHOLESALE", ""))
	assert.Equal(t, model.ActionReview, res.Action)
	assert.Empty(t, res.Category)
	assert.True(t, res.Confidence.IsZero())
	assert.False(t, res.Auto)
	assert.Zero(t, res.RuleID)
}

func TestClassify_TieBrokenByInsertionOrder(t *testing.T) {
	rs := []model.Rule{
		rule(1, 50, "home depot", "repairs"),
		rule(2, 50, "depot", "supplies"),
	}
	c := New(context.Background(), rs, testOpts)
	res := c.Classify(txn("THE HOME DEPOT #123", ""))
	assert.Equal(t, 1, res.RuleID)
	assert.Equal(t, "repairs", res.Category)

	// Reversing insertion order flips the winner.
	c = New(context.Background(), []model.Rule{rs[1], rs[0]}, testOpts)
	res = c.Classify(txn("THE HOME DEPOT #123", ""))
	assert.Equal(t, 2, res.RuleID)
}

func TestClassify_Deterministic(t *testing.T) {
	rs := []model.Rule{
		rule(1, 50, "depot", "supplies"),
		rule(2, 50, "home", "repairs"),
		rule(3, 100, "pge", "electricity"),
	}
	first := New(context.Background(), rs, testOpts).Classify(txn("HOME DEPOT", ""))
	for i := 0; i < 50; i++ {
		got := New(context.Background(), rs, testOpts).Classify(txn("HOME DEPOT", ""))
		assert.Equal(t, first.RuleID, got.RuleID)
		assert.Equal(t, first.Category, got.Category)
		assert.Equal(t, first.Action, got.Action)
		assert.True(t, first.Confidence.Equal(got.Confidence))
	}
}

func TestClassify_MalformedPatternSkipped(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	c := New(ctx, []model.Rule{
		rule(1, 200, "pge(", "electricity"),
		rule(2, 100, "pge", "gas"),
	}, testOpts)

	res := c.Classify(txn("PGE WEB PAY", ""))
	assert.Equal(t, 2, res.RuleID)
	assert.Equal(t, "gas", res.Category)

	require.Len(t, c.Skipped(), 1)
	assert.Equal(t, 1, c.Skipped()[0].ID)
	assert.Contains(t, buf.String(), "malformed pattern")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestClassify_InactiveIgnored(t *testing.T) {
	r := rule(1, 100, "pge", "electricity")
	r.Active = false
	c := New(context.Background(), []model.Rule{r}, testOpts)

	assert.Equal(t, model.ActionReview, c.Classify(txn("PGE", "")).Action)
}

func TestClassify_BelowFloorNotAuto(t *testing.T) {
	c := New(context.Background(), []model.Rule{rule(1, 60, "pge", "electricity")}, testOpts)

	res := c.Classify(txn("PGE", ""))
	assert.Equal(t, model.ActionCategorize, res.Action)
	assert.False(t, res.Auto)
	assert.True(t, res.Confidence.Equal(decimal.RequireFromString("0.75")))
}

func TestClassify_ExcludeRule(t *testing.T) {
	c := New(context.Background(), []model.Rule{
		{ID: 1, Priority: 150, Pattern: "online transfer", Action: model.ActionExclude, Active: true},
	}, testOpts)

	res := c.Classify(txn("ONLINE TRANSFER TO SAV", ""))
	assert.Equal(t, model.ActionExclude, res.Action)
	assert.Empty(t, res.Category)
	assert.True(t, res.Auto)
}

func TestClassify_ConfidenceTiers(t *testing.T) {
	c := New(context.Background(), nil, testOpts)
	assert.Equal(t, "0.95", c.confidence(250).String())
	assert.Equal(t, "0.95", c.confidence(100).String())
	assert.Equal(t, "0.75", c.confidence(99).String())
	assert.Equal(t, "0.5", c.confidence(0).String())
	assert.True(t, c.confidence(-5).IsZero())
}

func TestCompile(t *testing.T) {
	re, err := Compile(`pge\s+web`)
	require.NoError(t, err)
	assert.True(t, re.MatchString("PAYMENT PGE  WEB PAY"))

	_, err = Compile(`PGE(`)
	assert.Error(t, err)
}
