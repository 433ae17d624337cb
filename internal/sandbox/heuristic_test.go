package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeuristicExecuteCodeBalanced(t *testing.T) {
	h := NewHeuristicExecutor()
	result, err := h.ExecuteCode(context.Background(), map[string]string{
		"main.go": "package main\nfunc main() {}\n",
	}, 10)
	require.NoError(t, err)
	require.True(t, result.CompileSuccess)
}

func TestHeuristicExecuteCodeUnbalanced(t *testing.T) {
	h := NewHeuristicExecutor()
	result, err := h.ExecuteCode(context.Background(), map[string]string{
		"main.go": "package main\nfunc main() {\n",
	}, 10)
	require.NoError(t, err)
	require.False(t, result.CompileSuccess)
}

func TestHeuristicExecuteCodeDetectsTests(t *testing.T) {
	h := NewHeuristicExecutor()
	result, err := h.ExecuteCode(context.Background(), map[string]string{
		"main_test.go": "package main\nfunc TestFoo(t *testing.T) {}\n",
	}, 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.TestsRun)
}
