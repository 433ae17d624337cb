package vcs

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	return dir
}

func TestApplyChangesCommitsAndReturnsSHA(t *testing.T) {
	dir := initRepo(t)
	applier := NewGitApplier()

	result, err := applier.ApplyChanges(context.Background(), dir, []domain.FileChange{
		{FilePath: "main.go", Diff: "package main\n"},
	}, "")
	require.NoError(t, err)
	require.NotEmpty(t, result.CommitSHA)
}

func TestRollbackResetsLastCommit(t *testing.T) {
	dir := initRepo(t)
	applier := NewGitApplier()
	ctx := context.Background()

	_, err := applier.ApplyChanges(ctx, dir, []domain.FileChange{{FilePath: "a.txt", Diff: "one\n"}}, "")
	require.NoError(t, err)
	first, err := applier.ApplyChanges(ctx, dir, []domain.FileChange{{FilePath: "a.txt", Diff: "two\n"}}, "")
	require.NoError(t, err)
	require.NoError(t, applier.Rollback(ctx, dir))

	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	require.NotEqual(t, first.CommitSHA, string(out[:len(out)-1]))
}
