// Package pipeline runs bank-feed transactions through classification,
// ledger commit and obligation generation.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/rentbook/internal/auditlog"
	"github.com/cleared-dev/rentbook/internal/classify"
	"github.com/cleared-dev/rentbook/internal/ledger"
	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/split"
	"github.com/cleared-dev/rentbook/internal/store"
)

// Failure records a transaction whose unit of work was rolled back.
type Failure struct {
	Description string
	Err         error
}

// Summary reports one ingestion batch.
type Summary struct {
	RunID       string
	DryRun      bool
	Total       int
	Committed   int
	Duplicates  int
	Excluded    int
	Queued      int
	Obligations int
	Failed      int
	Failures    []Failure
}

// Merge folds the counts and failures of o into s.
func (s *Summary) Merge(o Summary) {
	s.Total += o.Total
	s.Committed += o.Committed
	s.Duplicates += o.Duplicates
	s.Excluded += o.Excluded
	s.Queued += o.Queued
	s.Obligations += o.Obligations
	s.Failed += o.Failed
	s.Failures = append(s.Failures, o.Failures...)
}

func (s *Summary) add(o outcome) {
	switch o.ledger {
	case ledger.OutcomeCommitted:
		s.Committed++
	case ledger.OutcomeDuplicate:
		s.Duplicates++
	case ledger.OutcomeExcluded:
		s.Excluded++
	case ledger.OutcomeQueued:
		s.Queued++
	}
	s.Obligations += o.obligations
}

// Options configure a Pipeline.
type Options struct {
	DryRun bool
	Audit  *auditlog.Buffer
}

// Pipeline wires the classifier, committer and obligation generator to a store.
type Pipeline struct {
	store      *store.Store
	classifier *classify.Classifier
	committer  *ledger.Committer
	generator  *split.Generator
	opts       Options
}

// New creates a Pipeline.
func New(s *store.Store, c *classify.Classifier, committer *ledger.Committer, g *split.Generator, opts Options) *Pipeline {
	return &Pipeline{store: s, classifier: c, committer: committer, generator: g, opts: opts}
}

type outcome struct {
	ledger      ledger.Outcome
	entry       model.LedgerEntry
	obligations int
}

// Ingest processes txns in order, one unit of work each.
func (p *Pipeline) Ingest(ctx context.Context, txns []model.RawTransaction) Summary {
	return p.IngestConcurrent(ctx, txns, 1)
}

// IngestConcurrent processes txns with up to workers goroutines. Ordering
// between units is not guaranteed; the store's uniqueness constraints keep
// the result identical to a sequential run.
func (p *Pipeline) IngestConcurrent(ctx context.Context, txns []model.RawTransaction, workers int) Summary {
	if workers < 1 {
		workers = 1
	}
	sum, ctx := p.begin(ctx, len(txns))
	log := logger.FromContext(ctx)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(workers)
	for _, txn := range txns {
		g.Go(func() error {
			o, err := p.unit(ctx, func(ctx context.Context, tx *store.Tx) (outcome, error) {
				return p.ingestOne(ctx, tx, txn)
			})

			mu.Lock()
			defer mu.Unlock()
			p.record(&sum, txn, o, err)
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("total", sum.Total).
		Int("committed", sum.Committed).
		Int("duplicates", sum.Duplicates).
		Int("queued", sum.Queued).
		Int("excluded", sum.Excluded).
		Int("obligations", sum.Obligations).
		Int("failed", sum.Failed).
		Bool("dry_run", sum.DryRun).
		Msg("ingest finished")
	return sum
}

// Reprocess re-classifies every queued transaction against the current rules.
func (p *Pipeline) Reprocess(ctx context.Context) (Summary, error) {
	var queued []model.RawTransaction
	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		queued, err = tx.QueuedRaw(ctx)
		return err
	})
	if err != nil {
		return Summary{}, fmt.Errorf("loading review queue: %w", err)
	}

	sum, ctx := p.begin(ctx, len(queued))
	for _, raw := range queued {
		o, err := p.unit(ctx, func(ctx context.Context, tx *store.Tx) (outcome, error) {
			current, err := tx.GetRaw(ctx, raw.ID)
			if err != nil {
				return outcome{}, err
			}
			if current.Processed {
				return outcome{ledger: ledger.OutcomeDuplicate}, nil
			}
			return p.apply(ctx, tx, current)
		})
		p.record(&sum, raw, o, err)
	}
	logger.FromContext(ctx).Info().
		Int("total", sum.Total).
		Int("committed", sum.Committed).
		Int("queued", sum.Queued).
		Int("failed", sum.Failed).
		Msg("reprocess finished")
	return sum, nil
}

func (p *Pipeline) begin(ctx context.Context, total int) (Summary, context.Context) {
	runID := p.opts.Audit.RunID()
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logger.WithFields(ctx, map[string]any{"run_id": runID})
	return Summary{RunID: runID, DryRun: p.opts.DryRun, Total: total}, ctx
}

// unit runs fn in one transaction, rolled back in dry-run mode.
func (p *Pipeline) unit(ctx context.Context, fn func(context.Context, *store.Tx) (outcome, error)) (outcome, error) {
	var o outcome
	run := func(tx *store.Tx) error {
		var err error
		o, err = fn(ctx, tx)
		return err
	}
	var err error
	if p.opts.DryRun {
		err = p.store.WithRollback(ctx, run)
	} else {
		err = p.store.WithTx(ctx, run)
	}
	if err != nil {
		return outcome{}, err
	}
	return o, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, tx *store.Tx, txn model.RawTransaction) (outcome, error) {
	raw, inserted, err := tx.InsertRaw(ctx, txn)
	if err != nil {
		return outcome{}, err
	}
	if !inserted && raw.Processed {
		logger.FromContext(ctx).Debug().Int64("raw_id", raw.ID).Msg("transaction already processed")
		return outcome{ledger: ledger.OutcomeDuplicate}, nil
	}
	return p.apply(ctx, tx, raw)
}

func (p *Pipeline) apply(ctx context.Context, tx *store.Tx, raw model.RawTransaction) (outcome, error) {
	res := p.classifier.Classify(raw)
	committed, err := p.committer.Commit(ctx, tx, raw, res)
	if err != nil {
		return outcome{}, fmt.Errorf("committing: %w", err)
	}
	o := outcome{ledger: committed.Outcome, entry: committed.Entry}
	if committed.Outcome != ledger.OutcomeCommitted {
		return o, nil
	}

	gen, err := p.generator.Generate(ctx, tx, committed.Entry)
	if err != nil {
		return outcome{}, fmt.Errorf("generating obligations: %w", err)
	}
	o.obligations = gen.Created
	return o, nil
}

func (p *Pipeline) record(sum *Summary, txn model.RawTransaction, o outcome, err error) {
	if err != nil {
		sum.Failed++
		sum.Failures = append(sum.Failures, Failure{Description: txn.Description, Err: err})
		p.opts.Audit.Add("pipeline", "failed", txn.NaturalKey(), err.Error())
		return
	}
	sum.add(o)
	if p.opts.DryRun {
		return
	}
	switch o.ledger {
	case ledger.OutcomeCommitted:
		p.opts.Audit.Add("pipeline", "committed", fmt.Sprintf("entry %d", o.entry.ID),
			fmt.Sprintf("%s %s %s", o.entry.Category, o.entry.Amount.StringFixed(2), o.entry.Merchant))
		if o.obligations > 0 {
			p.opts.Audit.Add("split", "generated", fmt.Sprintf("entry %d", o.entry.ID),
				fmt.Sprintf("%d obligations", o.obligations))
		}
	case ledger.OutcomeQueued:
		p.opts.Audit.Add("pipeline", "queued", txn.NaturalKey(), txn.Description)
	case ledger.OutcomeExcluded:
		p.opts.Audit.Add("pipeline", "excluded", txn.NaturalKey(), txn.Description)
	}
}

// Approve commits a queued transaction to category (or its stored suggestion)
// and generates obligations in the same unit.
func (p *Pipeline) Approve(ctx context.Context, rawID int64, category string) (ledger.Result, int, error) {
	var (
		res     ledger.Result
		created int
	)
	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		res, err = p.committer.Approve(ctx, tx, rawID, category)
		if err != nil {
			return err
		}
		if res.Outcome != ledger.OutcomeCommitted {
			return nil
		}
		gen, err := p.generator.Generate(ctx, tx, res.Entry)
		if err != nil {
			return fmt.Errorf("generating obligations: %w", err)
		}
		created = gen.Created
		return nil
	})
	if err != nil {
		return ledger.Result{}, 0, err
	}
	p.opts.Audit.Add("review", "approved", fmt.Sprintf("raw %d", rawID),
		fmt.Sprintf("%s entry %d", res.Entry.Category, res.Entry.ID))
	return res, created, nil
}

// Exclude removes a queued transaction from the ledger's scope.
func (p *Pipeline) Exclude(ctx context.Context, rawID int64) error {
	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		return p.committer.Exclude(ctx, tx, rawID)
	})
	if err != nil {
		return err
	}
	p.opts.Audit.Add("review", "excluded", fmt.Sprintf("raw %d", rawID), "")
	return nil
}
