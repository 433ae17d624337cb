package chunkstore

import (
	"context"
	"sort"
	"sync"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// MemoryStore is the development/test backend: maps plus a file-index set
// for O(1) inverse lookup, per 4.K's storage section. Grounded on the
// teacher's in-process map-backed stores (internal/store/embedded_store.go's
// mutex-guarded single-writer shape), generalized from intent-corpus rows
// to hierarchical chunks.
type MemoryStore struct {
	mu        sync.Mutex
	chunks    map[string]domain.Chunk
	byFile    map[string]map[string]struct{} // repoID|filePath -> set(chunkID)
	bySnap    map[string][]string             // repoID|snapshotID -> ordered chunkIDs
	log       *logging.Logger
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks: make(map[string]domain.Chunk),
		byFile: make(map[string]map[string]struct{}),
		bySnap: make(map[string][]string),
		log:    logging.Get(logging.CategoryChunkStore),
	}
}

func fileKey(repoID, filePath string) string { return repoID + "|" + filePath }
func snapKey(repoID, snapshotID string) string { return repoID + "|" + snapshotID }

func (m *MemoryStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Deduplicate by ChunkID within the batch, keeping the last write, per
	// 4.K's storage section.
	deduped := make(map[string]domain.Chunk, len(chunks))
	order := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, exists := deduped[c.ChunkID]; !exists {
			order = append(order, c.ChunkID)
		}
		deduped[c.ChunkID] = c
	}

	for _, id := range order {
		c := deduped[id]
		if err := c.ValidateBounds(); err != nil {
			return err
		}
		siblings := m.siblingsLocked(c.RepoID, c.ParentID, c.FilePath)
		if err := checkOverlap(c, siblings); err != nil {
			return err
		}

		if existing, ok := m.chunks[c.ChunkID]; ok {
			c.Version = existing.Version + 1
		} else {
			c.Version = 1
		}
		m.chunks[c.ChunkID] = c

		fk := fileKey(c.RepoID, c.FilePath)
		if m.byFile[fk] == nil {
			m.byFile[fk] = make(map[string]struct{})
		}
		m.byFile[fk][c.ChunkID] = struct{}{}

		sk := snapKey(c.RepoID, c.SnapshotID)
		if !containsString(m.bySnap[sk], c.ChunkID) {
			m.bySnap[sk] = append(m.bySnap[sk], c.ChunkID)
		}
	}
	return nil
}

func (m *MemoryStore) siblingsLocked(repoID, parentID, filePath string) []domain.Chunk {
	var out []domain.Chunk
	for id := range m.byFile[fileKey(repoID, filePath)] {
		c := m.chunks[id]
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out
}

func (m *MemoryStore) GetByID(ctx context.Context, chunkID string) (domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chunks[chunkID]
	if !ok {
		return domain.Chunk{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) GetBatch(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListBySnapshot(ctx context.Context, repoID, snapshotID string, offset, limit int) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := append([]string{}, m.bySnap[snapKey(repoID, snapshotID)]...)
	sort.Strings(ids)

	var live []domain.Chunk
	for _, id := range ids {
		if c := m.chunks[id]; !c.IsDeleted {
			live = append(live, c)
		}
	}

	if offset >= len(live) {
		return Page{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(live) {
		end = len(live)
	}
	page := Page{Chunks: live[offset:end]}
	if end < len(live) {
		page.HasMore = true
		page.NextOffset = end
	}
	return page, nil
}

func (m *MemoryStore) ListByFile(ctx context.Context, repoID, filePath string) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chunk
	for id := range m.byFile[fileKey(repoID, filePath)] {
		if c := m.chunks[id]; !c.IsDeleted {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out, nil
}

func (m *MemoryStore) GetByLine(ctx context.Context, repoID, filePath string, line int) (domain.Chunk, error) {
	candidates, err := m.ListByFile(ctx, repoID, filePath)
	if err != nil {
		return domain.Chunk{}, err
	}
	idx := pickByLine(candidates, line)
	if idx == -1 {
		return domain.Chunk{}, ErrNotFound
	}
	return candidates[idx], nil
}

func (m *MemoryStore) GetByLines(ctx context.Context, repoID string, queries []LineQuery) (map[LineQuery]domain.Chunk, error) {
	out := make(map[LineQuery]domain.Chunk, len(queries))
	cache := make(map[string][]domain.Chunk)
	for _, q := range queries {
		candidates, ok := cache[q.FilePath]
		if !ok {
			var err error
			candidates, err = m.ListByFile(ctx, repoID, q.FilePath)
			if err != nil {
				return nil, err
			}
			cache[q.FilePath] = candidates
		}
		if idx := pickByLine(candidates, q.Line); idx != -1 {
			out[q] = candidates[idx]
		}
	}
	return out, nil
}

func (m *MemoryStore) SoftDelete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		c, ok := m.chunks[id]
		if !ok {
			continue
		}
		c.IsDeleted = true
		c.Version++
		m.chunks[id] = c
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
