package chunkstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestMemoryStoreUpsertAndGetByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	chunk := domain.Chunk{
		ChunkID: "chunk:repo:function:Foo", RepoID: "repo", SnapshotID: "snap",
		Kind: domain.ChunkFunction, FilePath: "main.go", StartLine: 1, EndLine: 10,
	}
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk}))

	got, err := s.GetByID(ctx, chunk.ChunkID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Version)
}

func TestMemoryStoreUpsertDedupesByChunkIDKeepingLast(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := domain.Chunk{ChunkID: "c1", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFunction, FilePath: "f.go", Summary: "first"}
	second := domain.Chunk{ChunkID: "c1", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFunction, FilePath: "f.go", Summary: "second"}
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{first, second}))

	got, err := s.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "second", got.Summary)
}

func TestMemoryStoreUpsertRejectsOverlap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := domain.Chunk{ChunkID: "a", RepoID: "repo", SnapshotID: "snap", ParentID: "p", FilePath: "f.go", Kind: domain.ChunkFunction, StartLine: 1, EndLine: 10}
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{a}))

	b := domain.Chunk{ChunkID: "b", RepoID: "repo", SnapshotID: "snap", ParentID: "p", FilePath: "f.go", Kind: domain.ChunkFunction, StartLine: 5, EndLine: 15}
	err := s.Upsert(ctx, []domain.Chunk{b})
	require.Error(t, err)
}

func TestMemoryStoreListBySnapshotPaginates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var chunks []domain.Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, domain.Chunk{
			ChunkID: string(rune('a' + i)), RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFile, FilePath: string(rune('a' + i)),
		})
	}
	require.NoError(t, s.Upsert(ctx, chunks))

	page, err := s.ListBySnapshot(ctx, "repo", "snap", 0, 3)
	require.NoError(t, err)
	require.Len(t, page.Chunks, 3)
	require.True(t, page.HasMore)

	page2, err := s.ListBySnapshot(ctx, "repo", "snap", page.NextOffset, 3)
	require.NoError(t, err)
	require.Len(t, page2.Chunks, 2)
	require.False(t, page2.HasMore)
}

func TestMemoryStoreGetByLineResolvesSmallestEnclosingScope(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	file := domain.Chunk{ChunkID: "file1", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFile, FilePath: "f.go", StartLine: 1, EndLine: 100}
	fn := domain.Chunk{ChunkID: "fn1", RepoID: "repo", SnapshotID: "snap", ParentID: "file1", Kind: domain.ChunkFunction, FilePath: "f.go", StartLine: 20, EndLine: 30}
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{file, fn}))

	got, err := s.GetByLine(ctx, "repo", "f.go", 25)
	require.NoError(t, err)
	require.Equal(t, "fn1", got.ChunkID)
}

func TestMemoryStoreSoftDeleteBumpsVersionAndHidesFromList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c := domain.Chunk{ChunkID: "c1", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFile, FilePath: "f.go"}
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{c}))
	require.NoError(t, s.SoftDelete(ctx, []string{"c1"}))

	got, err := s.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.True(t, got.IsDeleted)
	require.Equal(t, 2, got.Version)

	byFile, err := s.ListByFile(ctx, "repo", "f.go")
	require.NoError(t, err)
	require.Empty(t, byFile)
}

func TestMemoryStoreGetBatchOmitsMissing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c := domain.Chunk{ChunkID: "c1", RepoID: "repo", SnapshotID: "snap", Kind: domain.ChunkFile, FilePath: "f.go"}
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{c}))

	got, err := s.GetBatch(ctx, []string{"c1", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
}
