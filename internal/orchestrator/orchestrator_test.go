package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
	"deepreason/internal/guardrail"
	"deepreason/internal/llmport"
	"deepreason/internal/sandbox"
	"deepreason/internal/vcs"
)

type fakeApplier struct {
	applyCalls    int
	rollbackCalls int
	sha           string
}

func (f *fakeApplier) ApplyChanges(ctx context.Context, repoPath string, changes []domain.FileChange, branchName string) (vcs.ApplyResult, error) {
	f.applyCalls++
	return vcs.ApplyResult{CommitSHA: f.sha}, nil
}

func (f *fakeApplier) Rollback(ctx context.Context, repoPath string) error {
	f.rollbackCalls++
	return nil
}

func newTestDeps(t *testing.T, applier *fakeApplier) Dependencies {
	t.Helper()
	return Dependencies{
		LLM:       llmport.NewMockProvider(nil),
		Sandbox:   sandbox.NewHeuristicExecutor(),
		VCS:       applier,
		Guardrail: guardrail.NewBasicValidator(nil),
	}
}

func TestOrchestratorRejectsMissingDependencies(t *testing.T) {
	_, err := New(Dependencies{})
	require.Error(t, err)
}

func TestOrchestratorSystem1TaskUsesFastPath(t *testing.T) {
	applier := &fakeApplier{sha: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"}
	o, err := New(newTestDeps(t, applier))
	require.NoError(t, err)

	task, err := domain.NewTask("fix off by one", "repo", "00000000-0000-0000-0000-000000000000", nil)
	require.NoError(t, err)

	resp, err := o.Execute(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, domain.System1, resp.ReasoningDecision.Path)
	require.Empty(t, resp.WorkflowResult.Metadata["strategy"])
}

func TestOrchestratorSystem2TaskDispatchesSelectedStrategy(t *testing.T) {
	applier := &fakeApplier{sha: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"}
	o, err := New(newTestDeps(t, applier))
	require.NoError(t, err)

	task, err := domain.NewTask("rewrite the architecture for concurrency and security", "repo", "00000000-0000-0000-0000-000000000000", nil)
	require.NoError(t, err)
	task.ForceSystem2 = true

	resp, err := o.Execute(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, domain.System2, resp.ReasoningDecision.Path)
	require.Equal(t, string(domain.StrategyTOT), resp.WorkflowResult.Metadata["strategy"])
}

func TestOrchestratorAppliesChangesAndSetsCommitSHA(t *testing.T) {
	applier := &fakeApplier{sha: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"}
	deps := newTestDeps(t, applier)
	deps.RepoPath = "/tmp/repo"
	o, err := New(deps)
	require.NoError(t, err)

	task, err := domain.NewTask("fix a small bug", "repo", "00000000-0000-0000-0000-000000000000", nil)
	require.NoError(t, err)

	resp, err := o.Execute(context.Background(), task)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, 1, applier.applyCalls)
	require.Equal(t, applier.sha, resp.CommitSHA)
}

func TestOrchestratorValidationErrorPropagatesUnchanged(t *testing.T) {
	applier := &fakeApplier{}
	o, err := New(newTestDeps(t, applier))
	require.NoError(t, err)

	_, err = o.Execute(context.Background(), domain.Task{})
	require.Error(t, err)
	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	require.Equal(t, domain.ErrValidation, derr.Kind)
}
