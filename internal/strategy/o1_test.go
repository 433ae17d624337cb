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

func TestO1ExecutorVerifiesCleanAnswer(t *testing.T) {
	port := llmport.NewMockProvider(map[string]string{"task": "```go\nfunc Add(a, b int) int { return a + b }\n```"})
	exec := NewO1Executor(port, sandbox.NewHeuristicExecutor(), constitutional.NewChecker(nil), O1Options{
		MaxAttempts: 3, VerificationThreshold: 0.6, FilePath: "candidate.go",
	})

	task, err := domain.NewTask("task: add two numbers", "repo", "00000000-0000-0000-0000-000000000000", nil)
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), Request{Task: task})
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestO1ExecutorReturnsBestStepAfterExhaustion(t *testing.T) {
	port := llmport.NewMockProvider(map[string]string{"empty-task": ""})
	exec := NewO1Executor(port, sandbox.NewHeuristicExecutor(), constitutional.NewChecker(nil), O1Options{
		MaxAttempts: 2, VerificationThreshold: 1.1, FilePath: "candidate.go",
	})

	task, err := domain.NewTask("empty-task", "repo", "00000000-0000-0000-0000-000000000000", nil)
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), Request{Task: task})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "unverified", result.WorkflowResult.FinalState)
}

func TestHighestConfidencePicksMax(t *testing.T) {
	steps := []o1Step{{confidence: 0.2}, {confidence: 0.9}, {confidence: 0.5}}
	require.Equal(t, 0.9, highestConfidence(steps).confidence)
}
