// Package chunkstore implements the Chunk Store & Mapping substrate (spec
// §4.K): two interchangeable backends over the same Store interface, a
// three-tier cache, incremental refresh, and the ChunkToIR/ChunkToGraph
// mapping tables. Grounded on the teacher's internal/store package: a
// mutex-guarded SQLite-backed store plus an embedded/in-memory read path,
// generalized from intent-corpus rows to hierarchical code chunks.
package chunkstore

import (
	"context"
	"fmt"

	"deepreason/internal/domain"
)

// ErrNotFound is returned by GetByID/GetBatch lookups that miss.
var ErrNotFound = fmt.Errorf("chunkstore: chunk not found")

// ErrOverlap is returned when an upsert would violate the sibling-overlap
// boundary invariant (4.K invariant 1).
type ErrOverlap struct {
	ChunkID  string
	SiblingID string
}

func (e *ErrOverlap) Error() string {
	return fmt.Sprintf("chunkstore: chunk %s overlaps sibling %s within the same parent/file", e.ChunkID, e.SiblingID)
}

// Page is a paginated (repo, snapshot) listing result.
type Page struct {
	Chunks     []domain.Chunk
	NextOffset int
	HasMore    bool
}

// LineQuery is one (file, line) lookup in a batch line-query.
type LineQuery struct {
	FilePath string
	Line     int
}

// Store is the 4.K storage contract both backends implement. All mutating
// operations are serialized per-process; callers never see a lock held
// across an I/O boundary outside this package.
type Store interface {
	// Upsert inserts or replaces chunks, deduplicating by ChunkID within
	// the batch (last write wins) and enforcing the boundary invariants.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// GetByID returns a single chunk or ErrNotFound.
	GetByID(ctx context.Context, chunkID string) (domain.Chunk, error)

	// GetBatch returns every chunk found among ids in a single round-trip;
	// missing ids are silently omitted from the result.
	GetBatch(ctx context.Context, ids []string) ([]domain.Chunk, error)

	// ListBySnapshot paginates every non-deleted chunk for (repoID,
	// snapshotID), offset/limit over a stable order.
	ListBySnapshot(ctx context.Context, repoID, snapshotID string, offset, limit int) (Page, error)

	// ListByFile returns every non-deleted chunk whose FilePath matches.
	ListByFile(ctx context.Context, repoID, filePath string) ([]domain.Chunk, error)

	// GetByLine resolves the chunk owning (filePath, line) with priority
	// function < class < file and smallest span wins (4.K storage rule).
	GetByLine(ctx context.Context, repoID, filePath string, line int) (domain.Chunk, error)

	// GetByLines is the batch variant of GetByLine.
	GetByLines(ctx context.Context, repoID string, queries []LineQuery) (map[LineQuery]domain.Chunk, error)

	// SoftDelete marks is_deleted=true and bumps version for each id.
	SoftDelete(ctx context.Context, ids []string) error
}

// kindPriority ranks chunk kinds for GetByLine's smallest-enclosing-scope
// resolution: function beats class beats file.
func kindPriority(k domain.ChunkKind) int {
	switch k {
	case domain.ChunkFunction:
		return 0
	case domain.ChunkClass:
		return 1
	case domain.ChunkFile:
		return 2
	default:
		return 3
	}
}

// pickByLine applies the priority-then-smallest-span rule across
// candidates that all contain line, returning the winner's index or -1.
func pickByLine(candidates []domain.Chunk, line int) int {
	best := -1
	for i, c := range candidates {
		if c.IsDeleted || line < c.StartLine || line > c.EndLine {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		bp, cp := kindPriority(candidates[best].Kind), kindPriority(c.Kind)
		if cp < bp {
			best = i
			continue
		}
		if cp == bp {
			bspan := candidates[best].EndLine - candidates[best].StartLine
			cspan := c.EndLine - c.StartLine
			if cspan < bspan {
				best = i
			}
		}
	}
	return best
}

// checkOverlap enforces 4.K invariant 1 against already-known siblings:
// same (ParentID, FilePath), non-meta kinds, intersecting spans.
func checkOverlap(candidate domain.Chunk, siblings []domain.Chunk) error {
	if candidate.Kind.IsMeta() {
		return nil
	}
	for _, s := range siblings {
		if s.ChunkID == candidate.ChunkID {
			continue
		}
		if s.ParentID != candidate.ParentID || s.FilePath != candidate.FilePath {
			continue
		}
		if s.Kind.IsMeta() {
			continue
		}
		if candidate.Overlaps(s) {
			return &ErrOverlap{ChunkID: candidate.ChunkID, SiblingID: s.ChunkID}
		}
	}
	return nil
}
