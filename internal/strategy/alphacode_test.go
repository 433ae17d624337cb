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

func TestAlphaCodeExecutorPicksBestCandidate(t *testing.T) {
	port := llmport.NewMockProvider(nil)
	exec := NewAlphaCodeExecutor(port, sandbox.NewHeuristicExecutor(), constitutional.NewChecker(nil), AlphaCodeOptions{
		NumSamples: 6, Temperature: 0.8, NumClusters: 2, ParallelWorkers: 3, FilePath: "candidate.go",
	})

	task, err := domain.NewTask("implement a sorter", "repo", "00000000-0000-0000-0000-000000000000", nil)
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), Request{Task: task})
	require.NoError(t, err)
	require.NotEmpty(t, result.BestCandidate.Code)
	require.Equal(t, 6, result.WorkflowResult.Metadata["num_samples"])
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 0.0001)
}

func TestCosineSimilarityOrthogonalIsZero(t *testing.T) {
	require.Equal(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}))
}

func TestClusterByCosineAssignsAllVectors(t *testing.T) {
	vectors := [][]float64{{1, 0}, {0.9, 0.1}, {0, 1}, {0.1, 0.9}}
	clusters := clusterByCosine(vectors, 2)
	total := 0
	for _, c := range clusters {
		total += len(c)
	}
	require.Equal(t, len(vectors), total)
}

func TestEmbeddingCacheReturnsSameVector(t *testing.T) {
	exec := NewAlphaCodeExecutor(llmport.NewMockProvider(nil), sandbox.NewHeuristicExecutor(), constitutional.NewChecker(nil), AlphaCodeOptions{
		EmbeddingCache: true, FilePath: "candidate.go",
	})
	v1 := exec.embed("func f() {}")
	v2 := exec.embed("func f() {}")
	require.Equal(t, v1, v2)
}
