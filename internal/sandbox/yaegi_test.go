package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestYaegiExecutorAcceptsValidGo(t *testing.T) {
	y := NewYaegiExecutor()
	result, err := y.ExecuteCode(context.Background(), map[string]string{
		"candidate.go": "package main\n\nfunc Add(a, b int) int { return a + b }\n",
	}, 10)
	require.NoError(t, err)
	require.True(t, result.CompileSuccess)
}

func TestYaegiExecutorRejectsInvalidGo(t *testing.T) {
	y := NewYaegiExecutor()
	result, err := y.ExecuteCode(context.Background(), map[string]string{
		"candidate.go": "package main\n\nfunc Broken( {\n",
	}, 10)
	require.NoError(t, err)
	require.False(t, result.CompileSuccess)
}
