package depgraph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestBuildSynthesizesExternalNode(t *testing.T) {
	g := NewGraph()
	g.Build(map[string]domain.CodeContext{
		"a.go": {FilePath: "a.go", Imports: []string{"fmt"}},
	})
	require.Equal(t, 2, g.NodeCount())
}

func TestImpactReturnsReachableNodes(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a.go", EdgeImports, "b.go")
	g.AddEdge("b.go", EdgeCalls, "c.go")

	result, err := g.Impact(context.Background(), []string{"a.go"})
	require.NoError(t, err)
	require.Contains(t, result.AffectedNodes, "b.go")
	require.Contains(t, result.AffectedNodes, "c.go")
}

func TestImpactDegradesAboveMaxFiles(t *testing.T) {
	g := NewGraph()
	for i := 0; i < MaxFilesForGraph+1; i++ {
		g.AddEdge("root", EdgeContains, fmt.Sprintf("f%d.go", i))
	}
	result, err := g.Impact(context.Background(), []string{"root"})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.RiskScore)
}

func TestTraversePathFindsShortestRoute(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", EdgeCalls, "b")
	g.AddEdge("b", EdgeCalls, "c")

	path, err := g.TraversePath("a", "c", 5)
	require.NoError(t, err)
	require.Len(t, path, 2)
}

func TestTraversePathNoRoute(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", EdgeCalls, "b")
	_, err := g.TraversePath("a", "z", 5)
	require.Error(t, err)
}
