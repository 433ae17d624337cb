package chunkstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestSQLStoreUpsertAndGetByIDRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	store, err := NewSQLStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	chunk := domain.Chunk{
		ChunkID: "chunk:repo:function:Foo", RepoID: "repo", SnapshotID: "snap",
		Kind: domain.ChunkFunction, FilePath: "main.go", StartLine: 1, EndLine: 10,
		Attrs: map[string]interface{}{"tokens": float64(42)},
	}
	require.NoError(t, store.Upsert(ctx, []domain.Chunk{chunk}))

	got, err := store.GetByID(ctx, chunk.ChunkID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Version)
	require.Equal(t, domain.ChunkFunction, got.Kind)
}

func TestSQLStoreUpsertRejectsOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	store, err := NewSQLStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	a := domain.Chunk{ChunkID: "a", RepoID: "repo", SnapshotID: "snap", ParentID: "p", FilePath: "f.go", Kind: domain.ChunkFunction, StartLine: 1, EndLine: 10}
	require.NoError(t, store.Upsert(ctx, []domain.Chunk{a}))

	b := domain.Chunk{ChunkID: "b", RepoID: "repo", SnapshotID: "snap", ParentID: "p", FilePath: "f.go", Kind: domain.ChunkFunction, StartLine: 5, EndLine: 15}
	require.Error(t, store.Upsert(ctx, []domain.Chunk{b}))
}

func TestSQLStoreSoftDeleteHidesFromListByFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	store, err := NewSQLStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	c := domain.Chunk{ChunkID: "c1", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFile, FilePath: "f.go"}
	require.NoError(t, store.Upsert(ctx, []domain.Chunk{c}))
	require.NoError(t, store.SoftDelete(ctx, []string{"c1"}))

	got, err := store.ListByFile(ctx, "repo", "f.go")
	require.NoError(t, err)
	require.Empty(t, got)
}
