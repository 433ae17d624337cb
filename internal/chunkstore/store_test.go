package chunkstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestPickByLinePrefersFunctionOverClassOverFile(t *testing.T) {
	candidates := []domain.Chunk{
		{ChunkID: "file1", Kind: domain.ChunkFile, StartLine: 1, EndLine: 100},
		{ChunkID: "class1", Kind: domain.ChunkClass, StartLine: 10, EndLine: 50},
		{ChunkID: "func1", Kind: domain.ChunkFunction, StartLine: 20, EndLine: 30},
	}
	idx := pickByLine(candidates, 25)
	require.Equal(t, "func1", candidates[idx].ChunkID)
}

func TestPickByLineSmallestSpanWinsAtSamePriority(t *testing.T) {
	candidates := []domain.Chunk{
		{ChunkID: "outer", Kind: domain.ChunkFunction, StartLine: 1, EndLine: 100},
		{ChunkID: "inner", Kind: domain.ChunkFunction, StartLine: 20, EndLine: 30},
	}
	idx := pickByLine(candidates, 25)
	require.Equal(t, "inner", candidates[idx].ChunkID)
}

func TestPickByLineReturnsMinusOneWhenNoneContainLine(t *testing.T) {
	candidates := []domain.Chunk{
		{ChunkID: "func1", Kind: domain.ChunkFunction, StartLine: 1, EndLine: 10},
	}
	require.Equal(t, -1, pickByLine(candidates, 100))
}

func TestCheckOverlapRejectsOverlappingSiblings(t *testing.T) {
	candidate := domain.Chunk{ChunkID: "b", ParentID: "p", FilePath: "f.go", Kind: domain.ChunkFunction, StartLine: 5, EndLine: 15}
	siblings := []domain.Chunk{
		{ChunkID: "a", ParentID: "p", FilePath: "f.go", Kind: domain.ChunkFunction, StartLine: 1, EndLine: 10},
	}
	err := checkOverlap(candidate, siblings)
	require.Error(t, err)
}

func TestCheckOverlapExemptsMetaKinds(t *testing.T) {
	candidate := domain.Chunk{ChunkID: "skel", ParentID: "p", FilePath: "f.go", Kind: domain.ChunkSkeleton, StartLine: 1, EndLine: 10}
	siblings := []domain.Chunk{
		{ChunkID: "a", ParentID: "p", FilePath: "f.go", Kind: domain.ChunkFunction, StartLine: 1, EndLine: 10},
	}
	require.NoError(t, checkOverlap(candidate, siblings))
}

func TestChunkValidateBoundsRejectsInvertedSpan(t *testing.T) {
	c := domain.Chunk{ChunkID: "x", StartLine: 10, EndLine: 5}
	require.Error(t, c.ValidateBounds())
}
