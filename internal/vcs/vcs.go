// Package vcs implements IVCSApplier (spec §6): applying a change set as a
// commit and rolling it back via a real `git` subprocess. The spec's own
// interface text mandates shell `git reset --hard HEAD~1` for rollback, so
// this package shells out to the system git binary rather than wrapping a
// Go git library.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// ApplyResult is IVCSApplier's apply_changes output.
type ApplyResult struct {
	CommitSHA string
}

// Applier is the IVCSApplier contract.
type Applier interface {
	ApplyChanges(ctx context.Context, repoPath string, changes []domain.FileChange, branchName string) (ApplyResult, error)
	Rollback(ctx context.Context, repoPath string) error
}

// GitApplier shells out to the system git binary.
type GitApplier struct {
	log *logging.Logger
}

// NewGitApplier constructs a GitApplier.
func NewGitApplier() *GitApplier {
	return &GitApplier{log: logging.Get(logging.CategoryVCS)}
}

// ApplyChanges writes changes[i].Diff as the full content of
// changes[i].FilePath, checks out branchName (creating it if needed),
// stages and commits, and returns the resulting commit SHA.
func (g *GitApplier) ApplyChanges(ctx context.Context, repoPath string, changes []domain.FileChange, branchName string) (ApplyResult, error) {
	if branchName != "" {
		if err := g.run(ctx, repoPath, "checkout", "-B", branchName); err != nil {
			return ApplyResult{}, fmt.Errorf("vcs: checkout branch %s: %w", branchName, err)
		}
	}

	for _, c := range changes {
		path := repoPath + string(os.PathSeparator) + c.FilePath
		if err := os.WriteFile(path, []byte(c.Diff), 0644); err != nil {
			return ApplyResult{}, fmt.Errorf("vcs: write %s: %w", c.FilePath, err)
		}
	}

	if err := g.run(ctx, repoPath, "add", "-A"); err != nil {
		return ApplyResult{}, fmt.Errorf("vcs: git add: %w", err)
	}

	if err := g.run(ctx, repoPath, "commit", "-m", "deep reasoning orchestrator: apply generated changes"); err != nil {
		return ApplyResult{}, fmt.Errorf("vcs: git commit: %w", err)
	}

	sha, err := g.output(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return ApplyResult{}, fmt.Errorf("vcs: rev-parse HEAD: %w", err)
	}

	g.log.Info("applied %d changes, commit=%s", len(changes), sha)
	return ApplyResult{CommitSHA: sha}, nil
}

// Rollback discards the most recent commit with `git reset --hard
// HEAD~1`, per spec §6's explicit external-interface contract.
func (g *GitApplier) Rollback(ctx context.Context, repoPath string) error {
	g.log.Warn("rolling back last commit in %s", repoPath)
	return g.run(ctx, repoPath, "reset", "--hard", "HEAD~1")
}

func (g *GitApplier) run(ctx context.Context, repoPath string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, stderr.String())
	}
	return nil
}

func (g *GitApplier) output(ctx context.Context, repoPath string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
