package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStrategyCaseInsensitive(t *testing.T) {
	s, err := ParseStrategy("ToT")
	require.NoError(t, err)
	require.Equal(t, StrategyTOT, s)
}

func TestParseStrategyUnknown(t *testing.T) {
	_, err := ParseStrategy("bogus")
	require.Error(t, err)
}

func TestReflectionVerdictIsLegal(t *testing.T) {
	require.True(t, VerdictAccept.IsLegal())
	require.False(t, ReflectionVerdict("MAYBE").IsLegal())
}

func TestChunkKindIsMeta(t *testing.T) {
	require.True(t, ChunkSkeleton.IsMeta())
	require.False(t, ChunkFunction.IsMeta())
}
