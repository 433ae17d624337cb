package chunkstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestRefreshRebuildsOnlyTouchedChunks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	untouched := domain.Chunk{ChunkID: "untouched", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFunction, FilePath: "f.go", StartLine: 1, EndLine: 5, ContentHash: "h1"}
	touched := domain.Chunk{ChunkID: "touched", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFunction, FilePath: "f.go", StartLine: 20, EndLine: 30, ContentHash: "h2"}
	require.NoError(t, store.Upsert(ctx, []domain.Chunk{untouched, touched}))

	rebuild := func(ctx context.Context, filePath string) ([]domain.Chunk, error) {
		return []domain.Chunk{
			{ChunkID: "untouched", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFunction, FilePath: "f.go", StartLine: 1, EndLine: 5, ContentHash: "h1"},
			{ChunkID: "touched", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFunction, FilePath: "f.go", StartLine: 20, EndLine: 30, ContentHash: "h2-new"},
		}, nil
	}

	refresher := NewRefresher(store, rebuild)
	result, err := refresher.Refresh(ctx, "repo", "snap", []DiffHunk{
		{FilePath: "f.go", OldStart: 22, OldEnd: 25, NewStart: 22, NewEnd: 25},
	})
	require.NoError(t, err)
	require.Contains(t, result.Updated, "touched")
	require.Contains(t, result.Unchanged, "untouched")

	got, err := store.GetByID(ctx, "touched")
	require.NoError(t, err)
	require.Equal(t, "h2-new", got.ContentHash)
}

func TestRefreshWholeTreeRebuildOnAddedFile(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	calls := 0
	rebuild := func(ctx context.Context, filePath string) ([]domain.Chunk, error) {
		calls++
		return []domain.Chunk{
			{ChunkID: "new1", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFile, FilePath: filePath},
		}, nil
	}

	refresher := NewRefresher(store, rebuild)
	result, err := refresher.Refresh(ctx, "repo", "snap", []DiffHunk{
		{FilePath: "new.go", FileAdded: true},
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Contains(t, result.Created, "new1")
}

func TestRefreshSoftDeletesWholeFileOnDeletion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c := domain.Chunk{ChunkID: "c1", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFile, FilePath: "gone.go"}
	require.NoError(t, store.Upsert(ctx, []domain.Chunk{c}))

	refresher := NewRefresher(store, nil)
	result, err := refresher.Refresh(ctx, "repo", "snap", []DiffHunk{
		{FilePath: "gone.go", FileDeleted: true},
	})
	require.NoError(t, err)
	require.Contains(t, result.Deleted, "c1")

	got, err := store.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.True(t, got.IsDeleted)
}
