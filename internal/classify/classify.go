// Package classify evaluates raw transactions against the rule set.
package classify

import (
	"context"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/rentbook/internal/config"
	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/rules"
)

// Options configures auto-approval and confidence tiers.
type Options struct {
	AutoApprovePriority int
	Tiers               []config.ConfidenceTier
}

// OptionsFromConfig builds Options from the classification config block.
func OptionsFromConfig(c config.ClassificationConfig) Options {
	return Options{AutoApprovePriority: c.AutoApprovePriority, Tiers: c.ConfidenceTiers}
}

// Result is the classifier's decision for one transaction.
type Result struct {
	RuleID     int
	Category   string
	Action     model.Action
	Priority   int
	Confidence decimal.Decimal

	// Auto is true when the decision may be applied without review:
	// the rule matched at or above the auto-approval priority floor.
	Auto bool
}

type compiledRule struct {
	rule model.Rule
	re   *regexp.Regexp
}

// Classifier matches transactions against active rules, highest priority first.
type Classifier struct {
	rules   []compiledRule
	skipped []model.Rule
	opts    Options
}

// New compiles the active rules. Rules with a malformed pattern are logged
// and skipped; the remaining rules still apply.
func New(ctx context.Context, rs []model.Rule, opts Options) *Classifier {
	log := logger.FromContext(ctx)

	tiers := append([]config.ConfidenceTier(nil), opts.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinPriority > tiers[j].MinPriority })
	opts.Tiers = tiers

	c := &Classifier{opts: opts}
	for _, r := range rules.NewSet(rs).Sorted() {
		if err := r.Validate(); err != nil {
			log.Warn().Int("rule_id", r.ID).Err(err).Msg("skipping invalid rule")
			c.skipped = append(c.skipped, r)
			continue
		}
		re, err := Compile(r.Pattern)
		if err != nil {
			log.Warn().Int("rule_id", r.ID).Str("pattern", r.Pattern).Err(err).Msg("skipping rule with malformed pattern")
			c.skipped = append(c.skipped, r)
			continue
		}
		c.rules = append(c.rules, compiledRule{rule: r, re: re})
	}
	return c
}

// Compile compiles a rule pattern the way the classifier matches it:
// case-insensitive, unanchored.
func Compile(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// Skipped returns the rules that could not be compiled.
func (c *Classifier) Skipped() []model.Rule {
	return c.skipped
}

// Classify returns the first matching rule's decision, or a review result
// with zero confidence when nothing matches.
func (c *Classifier) Classify(txn model.RawTransaction) Result {
	text := txn.MatchText()
	for _, cr := range c.rules {
		if !cr.re.MatchString(text) {
			continue
		}
		r := cr.rule
		res := Result{
			RuleID:     r.ID,
			Action:     r.Action,
			Priority:   r.Priority,
			Confidence: c.confidence(r.Priority),
			Auto:       r.Priority >= c.opts.AutoApprovePriority,
		}
		if r.Action == model.ActionCategorize {
			res.Category = r.Category
		}
		return res
	}
	return Result{Action: model.ActionReview, Confidence: decimal.Zero}
}

func (c *Classifier) confidence(priority int) decimal.Decimal {
	for _, tier := range c.opts.Tiers {
		if priority >= tier.MinPriority {
			return decimal.NewFromFloat(tier.Confidence)
		}
	}
	return decimal.Zero
}
