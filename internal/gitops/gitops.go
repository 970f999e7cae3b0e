// Package gitops records project file edits in the project's git repository.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/rentbook/internal/config"
	"github.com/cleared-dev/rentbook/internal/logger"
)

// Init initializes a new git repository at dir.
func Init(ctx context.Context, dir string) error {
	if _, err := run(ctx, dir, nil, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Recorder commits project edits with a fixed identity. A disabled Recorder
// does nothing.
type Recorder struct {
	dir     string
	enabled bool
	name    string
	email   string
}

// NewRecorder creates a Recorder for the project at dir.
func NewRecorder(dir string, cfg config.GitConfig) *Recorder {
	return &Recorder{dir: dir, enabled: cfg.AutoCommit, name: cfg.AuthorName, email: cfg.AuthorEmail}
}

// CommitAll stages everything and commits. Returns the short hash, or "" when
// the recorder is disabled, the project is not a repo, or nothing changed.
func (r *Recorder) CommitAll(ctx context.Context, message string) (string, error) {
	return r.commit(ctx, message, "-A")
}

// CommitPaths stages only paths (relative to the project root) and commits.
func (r *Recorder) CommitPaths(ctx context.Context, message string, paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}
	return r.commit(ctx, message, append([]string{"--"}, paths...)...)
}

func (r *Recorder) commit(ctx context.Context, message string, addArgs ...string) (string, error) {
	log := logger.FromContext(ctx)
	if !r.enabled {
		return "", nil
	}
	if !IsRepo(r.dir) {
		log.Debug().Str("dir", r.dir).Msg("not a git repository, skipping commit")
		return "", nil
	}

	if _, err := run(ctx, r.dir, nil, append([]string{"add"}, addArgs...)...); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}
	if _, err := run(ctx, r.dir, nil, "diff", "--cached", "--quiet"); err == nil {
		log.Debug().Msg("nothing to commit")
		return "", nil
	}

	env := []string{
		"GIT_AUTHOR_NAME=" + r.name,
		"GIT_AUTHOR_EMAIL=" + r.email,
		"GIT_COMMITTER_NAME=" + r.name,
		"GIT_COMMITTER_EMAIL=" + r.email,
	}
	if _, err := run(ctx, r.dir, env, "commit", "--quiet", "-m", message); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}

	out, err := run(ctx, r.dir, nil, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	hash := strings.TrimSpace(out)
	log.Info().Str("commit", hash).Str("message", message).Msg("committed project change")
	return hash, nil
}

func run(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s: %w", strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}
