package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/constitutional"
	"deepreason/internal/domain"
	"deepreason/internal/llmport"
	"deepreason/internal/sandbox"
)

func TestTOTExecutorAcceptsBestCompilingCandidate(t *testing.T) {
	port := llmport.NewMockProvider(nil)
	exec := NewTOTExecutor(port, sandbox.NewHeuristicExecutor(), constitutional.NewChecker(nil), TOTOptions{FilePath: "candidate.go"})

	task, err := domain.NewTask("add two numbers", "repo", "00000000-0000-0000-0000-000000000000", nil)
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), Request{Task: task})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, domain.VerdictAccept, result.ReflectionVerdict)
}

func TestTOTExecutorFallsBackWhenNoCandidates(t *testing.T) {
	port := llmport.NewMockProvider(nil)
	exec := NewTOTExecutor(port, sandbox.NewHeuristicExecutor(), constitutional.NewChecker(nil), TOTOptions{NumStrategies: 0, FilePath: "candidate.go"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task, _ := domain.NewTask("task", "repo", "00000000-0000-0000-0000-000000000000", nil)
	result, err := exec.Execute(ctx, Request{Task: task})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "fallback_system1", result.WorkflowResult.FinalState)
}

func TestSmartPruneDedupesByNormalizedHash(t *testing.T) {
	candidates := []domain.Candidate{
		{ID: "a", Code: "func f() {}"},
		{ID: "b", Code: "func   f()   {}"},
		{ID: "c", Code: "func g() {}"},
	}
	pruned := smartPrune(candidates)
	require.Len(t, pruned, 2)
}
