package llmport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockProviderGenerateMatchesCannedResponse(t *testing.T) {
	m := NewMockProvider(map[string]string{"add two": "func Add(a, b int) int { return a + b }"})
	resp, err := m.Generate(context.Background(), "please add two numbers", GenerateOptions{})
	require.NoError(t, err)
	require.Contains(t, resp, "func Add")
}

func TestMockProviderGenerateBatch(t *testing.T) {
	m := NewMockProvider(nil)
	out, err := m.GenerateBatch(context.Background(), []string{"a", "b", "c"}, GenerateOptions{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, 3, m.CallCount())
}

func TestMockProviderRespectsCancelledContext(t *testing.T) {
	m := NewMockProvider(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Generate(ctx, "x", GenerateOptions{})
	require.Error(t, err)
}
