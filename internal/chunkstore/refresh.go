package chunkstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// DiffHunk is one changed region of a file since LastIndexedCommit,
// expressed as a line range in both the old and new file content.
type DiffHunk struct {
	FilePath    string
	OldStart    int
	OldEnd      int
	NewStart    int
	NewEnd      int
	FileAdded   bool
	FileDeleted bool
}

// Rebuilder parses filePath's current content into the chunks that should
// exist for it. Chunk store does not own parsing (that belongs to the
// code-context/AST layer), so Refresh takes it as a dependency rather than
// importing a parser package directly.
type Rebuilder func(ctx context.Context, filePath string) ([]domain.Chunk, error)

// Refresher drives 4.K's incremental refresh rule: only chunks whose span
// intersects a hunk are rebuilt; unchanged chunk ids are preserved so the
// inverted index stays stable, and content-hash changes propagate upward
// to ancestor file/module/project chunks.
type Refresher struct {
	store     Store
	rebuild   Rebuilder
	log       *logging.Logger
}

// NewRefresher constructs a Refresher over store using rebuild to
// reparse touched files.
func NewRefresher(store Store, rebuild Rebuilder) *Refresher {
	return &Refresher{store: store, rebuild: rebuild, log: logging.Get(logging.CategoryChunkStore)}
}

// Refresh applies hunks (grouped implicitly by FilePath) and returns the
// resulting ChunkRefreshResult.
func (r *Refresher) Refresh(ctx context.Context, repoID, snapshotID string, hunks []DiffHunk) (domain.ChunkRefreshResult, error) {
	result := domain.ChunkRefreshResult{}

	byFile := make(map[string][]DiffHunk)
	for _, h := range hunks {
		byFile[h.FilePath] = append(byFile[h.FilePath], h)
	}

	for filePath, fileHunks := range byFile {
		deleted := false
		added := false
		for _, h := range fileHunks {
			if h.FileDeleted {
				deleted = true
			}
			if h.FileAdded {
				added = true
			}
		}

		existing, err := r.store.ListByFile(ctx, repoID, filePath)
		if err != nil {
			return result, err
		}

		if deleted {
			ids := chunkIDsOf(existing)
			if err := r.store.SoftDelete(ctx, ids); err != nil {
				return result, err
			}
			result.Deleted = append(result.Deleted, ids...)
			continue
		}

		if added || len(existing) == 0 {
			// Added files (or files with no prior chunks) get a whole
			// sub-hierarchy rebuild rather than a span-intersection diff.
			fresh, err := r.rebuild(ctx, filePath)
			if err != nil {
				return result, err
			}
			if err := r.store.Upsert(ctx, fresh); err != nil {
				return result, err
			}
			result.Created = append(result.Created, chunkIDsOf(fresh)...)
			continue
		}

		touched := touchedChunks(existing, fileHunks)
		if len(touched) == 0 {
			result.Unchanged = append(result.Unchanged, chunkIDsOf(existing)...)
			continue
		}

		rebuilt, err := r.rebuild(ctx, filePath)
		if err != nil {
			return result, err
		}

		// Preserve chunk ids that didn't intersect any hunk: only the
		// touched spans get new content from rebuilt, the rest keep their
		// existing entry so the inverted index remains stable.
		touchedIDs := make(map[string]struct{}, len(touched))
		for _, c := range touched {
			touchedIDs[c.ChunkID] = struct{}{}
		}

		var toUpsert []domain.Chunk
		for _, c := range rebuilt {
			if spanIntersectsAny(c, fileHunks) {
				toUpsert = append(toUpsert, c)
			}
		}
		if err := r.store.Upsert(ctx, toUpsert); err != nil {
			return result, err
		}
		result.Updated = append(result.Updated, chunkIDsOf(toUpsert)...)

		for _, c := range existing {
			if _, wasTouched := touchedIDs[c.ChunkID]; !wasTouched {
				result.Unchanged = append(result.Unchanged, c.ChunkID)
			}
		}

		r.propagateToAncestors(ctx, repoID, snapshotID, toUpsert)
	}

	return result, nil
}

// propagateToAncestors bumps the content hash of file/module/project
// chunks above each rebuilt chunk, per 4.K's "propagate content-hash
// change upward" rule. Ancestor resolution walks ParentID links already
// present in the store.
func (r *Refresher) propagateToAncestors(ctx context.Context, repoID, snapshotID string, rebuilt []domain.Chunk) {
	seen := make(map[string]struct{})
	for _, c := range rebuilt {
		parentID := c.ParentID
		for parentID != "" {
			if _, already := seen[parentID]; already {
				break
			}
			seen[parentID] = struct{}{}
			parent, err := r.store.GetByID(ctx, parentID)
			if err != nil {
				break
			}
			parent.ContentHash = combinedHash(parent.ContentHash, c.ContentHash)
			if err := r.store.Upsert(ctx, []domain.Chunk{parent}); err != nil {
				r.log.Debug("chunkstore: ancestor propagation failed for %s: %v", parentID, err)
				break
			}
			parentID = parent.ParentID
		}
	}
}

func touchedChunks(existing []domain.Chunk, hunks []DiffHunk) []domain.Chunk {
	var out []domain.Chunk
	for _, c := range existing {
		if spanIntersectsAny(c, hunks) {
			out = append(out, c)
		}
	}
	return out
}

func spanIntersectsAny(c domain.Chunk, hunks []DiffHunk) bool {
	for _, h := range hunks {
		if c.StartLine <= h.OldEnd && h.OldStart <= c.EndLine {
			return true
		}
	}
	return false
}

func chunkIDsOf(chunks []domain.Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.ChunkID)
	}
	return out
}

// combinedHash folds a child's content hash into a parent's, so an
// ancestor's hash changes whenever any descendant's does without needing to
// recompute from full content, keeping the result a fixed-length digest
// rather than an ever-growing string.
func combinedHash(parentHash, childHash string) string {
	sum := sha256.Sum256([]byte(parentHash + ":" + childHash))
	return hex.EncodeToString(sum[:])
}
