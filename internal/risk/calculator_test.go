package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/depgraph"
	"deepreason/internal/domain"
)

func TestScoreClampedToUnitInterval(t *testing.T) {
	c := NewCalculator()
	ctx := domain.CodeContext{FilePath: "a.go", ComplexityScore: 1, DependencyCount: 100}
	score := c.Score(context.Background(), ctx, nil, nil)
	require.LessOrEqual(t, score, 1.0)
	require.GreaterOrEqual(t, score, 0.0)
}

func TestScoreCacheHitReturnsSameValue(t *testing.T) {
	c := NewCalculator()
	ctx := domain.CodeContext{FilePath: "a.go", Imports: []string{"fmt"}, ComplexityScore: 0.5}

	first := c.Score(context.Background(), ctx, nil, nil)
	second := c.Score(context.Background(), ctx, nil, nil)
	require.Equal(t, first, second)
}

func TestScoreUsesGraphImpact(t *testing.T) {
	c := NewCalculator()
	g := depgraph.NewGraph()
	g.AddEdge("a.go", depgraph.EdgeImports, "b.go")

	ctx := domain.CodeContext{FilePath: "a.go"}
	score := c.Score(context.Background(), ctx, g, []string{"a.go"})
	require.Greater(t, score, 0.0)
}
