package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleared-dev/rentbook/internal/auditlog"
	"github.com/cleared-dev/rentbook/internal/logger"
)

// Failure records an event the runner could not process.
type Failure struct {
	MessageID string
	Err       error
}

// Summary reports one matcher run.
type Summary struct {
	RunID          string
	Total          int
	Matched        int
	AlreadyMatched int
	Review         int
	Unmatched      int
	Deferred       int
	Failed         int
	Failures       []Failure
}

// Runner processes every event from a source. A failing event is counted and
// skipped; it never stops the batch.
type Runner struct {
	source  EventSource
	matcher *Matcher
	audit   *auditlog.Buffer
}

// NewRunner creates a Runner. audit may be nil.
func NewRunner(source EventSource, matcher *Matcher, audit *auditlog.Buffer) *Runner {
	return &Runner{source: source, matcher: matcher, audit: audit}
}

// Run fetches and processes one batch.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	runID := r.audit.RunID()
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logger.WithFields(ctx, map[string]any{"run_id": runID, "source": r.source.Name()})
	log := logger.FromContext(ctx)

	events, err := r.source.Fetch(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("fetching events from %s: %w", r.source.Name(), err)
	}

	sum := Summary{RunID: runID, Total: len(events)}
	for _, ev := range events {
		res, err := r.matcher.Process(ctx, ev)
		if err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{MessageID: ev.MessageID, Err: err})
			log.Error().Err(err).Str("message_id", ev.MessageID).Msg("processing event failed")
			r.audit.Add("matcher", "failed", ev.MessageID, err.Error())
			continue
		}

		subject := res.Event.MessageID
		switch res.Outcome {
		case OutcomeMatched:
			sum.Matched++
			details := fmt.Sprintf("%s score %.3f", res.Obligation.TrackingID, res.Score)
			if res.Deferred {
				sum.Deferred++
				details += " adjustment deferred"
			}
			r.audit.Add("matcher", string(res.Outcome), subject, details)
		case OutcomeAlreadyMatched:
			sum.AlreadyMatched++
		case OutcomeReview:
			sum.Review++
			r.audit.Add("matcher", string(res.Outcome), subject, fmt.Sprintf("candidates %v score %.3f", res.Candidates, res.Score))
		case OutcomeUnmatched:
			sum.Unmatched++
			r.audit.Add("matcher", string(res.Outcome), subject, fmt.Sprintf("score %.3f", res.Score))
		}
	}

	log.Info().
		Int("total", sum.Total).
		Int("matched", sum.Matched).
		Int("already_matched", sum.AlreadyMatched).
		Int("review", sum.Review).
		Int("unmatched", sum.Unmatched).
		Int("failed", sum.Failed).
		Msg("matcher run complete")
	return sum, nil
}
