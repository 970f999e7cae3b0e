package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/rentbook/internal/auditlog"
	"github.com/cleared-dev/rentbook/internal/categories"
	"github.com/cleared-dev/rentbook/internal/classify"
	"github.com/cleared-dev/rentbook/internal/config"
	"github.com/cleared-dev/rentbook/internal/gitops"
	"github.com/cleared-dev/rentbook/internal/ledger"
	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/match"
	"github.com/cleared-dev/rentbook/internal/pipeline"
	"github.com/cleared-dev/rentbook/internal/reconcile"
	"github.com/cleared-dev/rentbook/internal/rules"
	"github.com/cleared-dev/rentbook/internal/split"
	"github.com/cleared-dev/rentbook/internal/store"
)

// ConfigFile is the project config file name.
const ConfigFile = "rentbook.yaml"

// project is an opened rentbook directory.
type project struct {
	root  string
	cfg   *config.Config
	chart *categories.Service
	rules *rules.Set
	store *store.Store
	git   *gitops.Recorder
	audit *auditlog.Buffer
}

func openProject(cmd *cobra.Command) (*project, error) {
	root, err := filepath.Abs(repoFlag(cmd))
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, ConfigFile))
	if err != nil {
		return nil, err
	}
	chart, err := categories.Load(root)
	if err != nil {
		return nil, err
	}
	rs, err := rules.Load(root)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Database.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	cmd.SetContext(logger.WithFields(cmd.Context(), map[string]any{"run_id": runID}))

	return &project{
		root:  root,
		cfg:   cfg,
		chart: chart,
		rules: rs,
		store: s,
		git:   gitops.NewRecorder(root, cfg.Git),
		audit: auditlog.NewBuffer(runID),
	}, nil
}

// Close flushes the audit log and closes the store.
func (p *project) Close() error {
	return errors.Join(p.audit.Flush(p.root), p.store.Close())
}

// closeInto closes the project and joins any failure into *errp.
func (p *project) closeInto(errp *error) {
	*errp = errors.Join(*errp, p.Close())
}

func (p *project) pipeline(ctx context.Context, dryRun bool) *pipeline.Pipeline {
	c := classify.New(ctx, p.rules.All(), classify.OptionsFromConfig(p.cfg.Classification))
	return pipeline.New(p.store, c,
		ledger.NewCommitter(p.chart),
		split.NewGenerator(p.cfg.Parties, p.chart),
		pipeline.Options{DryRun: dryRun, Audit: p.audit})
}

func (p *project) matcher() *reconcile.Matcher {
	return reconcile.NewMatcher(p.store, match.PolicyFromConfig(p.cfg.Matching, p.cfg.Parties))
}

// commitAudit records the audit log and any listed project files in git.
func (p *project) commitAudit(ctx context.Context, message string, paths ...string) {
	if err := p.audit.Flush(p.root); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("writing audit log")
		return
	}
	var existing []string
	for _, rel := range append(paths, auditlog.RelPath) {
		if _, err := os.Stat(filepath.Join(p.root, rel)); err == nil {
			existing = append(existing, rel)
		}
	}
	if _, err := p.git.CommitPaths(ctx, message, existing...); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("recording change in git")
	}
}
