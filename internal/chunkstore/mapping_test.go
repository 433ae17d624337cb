package chunkstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestMappingStoreRoundTripsIRAndGraphNodes(t *testing.T) {
	m := NewMappingStore()
	ctx := context.Background()

	require.NoError(t, m.SetIRNodes(ctx, "repo", "snap", "c1", []string{"ir1", "ir2"}))
	require.NoError(t, m.SetGraphNodes(ctx, "repo", "snap", "c1", []string{"g1"}))

	require.ElementsMatch(t, []string{"ir1", "ir2"}, m.IRNodes("repo", "snap", "c1"))
	require.ElementsMatch(t, []string{"g1"}, m.GraphNodes("repo", "snap", "c1"))
}

func TestMappingStoreValidateConsistencyFailsOnMissingChunk(t *testing.T) {
	store := NewMemoryStore()
	m := NewMappingStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.Chunk{{ChunkID: "c1", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFile}}))
	require.NoError(t, m.SetIRNodes(ctx, "repo", "snap", "c1", []string{"ir1"}))

	require.NoError(t, m.ValidateConsistency(ctx, store, "repo", "snap", []string{"c1"}))
	require.Error(t, m.ValidateConsistency(ctx, store, "repo", "snap", []string{"missing"}))
}
