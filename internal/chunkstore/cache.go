package chunkstore

import (
	"container/list"
	"context"
	"sync"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// lruEntry is one L1 cache slot.
type lruEntry struct {
	key   string
	value domain.Chunk
}

// l1Cache is a fixed-capacity in-process LRU, namespaced by chunk id. No
// example in this stack imports a dedicated LRU library (the one transitive
// hit, hashicorp/golang-lru, is pulled in indirectly by another repo's
// dependency rather than used directly by any example's own code), so this
// is a small container/list-backed implementation in the teacher's general
// style of hand-rolled bounded caches rather than a borrowed library.
type l1Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[string]*list.Element
}

func newL1Cache(capacity int) *l1Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &l1Cache{capacity: capacity, ll: list.New(), index: make(map[string]*list.Element)}
}

func (c *l1Cache) get(key string) (domain.Chunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		return domain.Chunk{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *l1Cache) put(key string, value domain.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		el.Value.(*lruEntry).value = value
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&lruEntry{key: key, value: value})
	c.index[key] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.index, oldest.Value.(*lruEntry).key)
		}
	}
}

func (c *l1Cache) invalidateRepo(repoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.index {
		if el.Value.(*lruEntry).value.RepoID == repoID {
			c.ll.Remove(el)
			delete(c.index, key)
		}
	}
}

// l2Cache is the shared-across-requests tier: a plain map guarded by
// sync.RWMutex standing in for an out-of-process cache (redis/memcached in
// the teacher's deployment target, not part of this stack's dependencies).
type l2Cache struct {
	mu   sync.RWMutex
	data map[string]domain.Chunk
}

func newL2Cache() *l2Cache {
	return &l2Cache{data: make(map[string]domain.Chunk)}
}

func (c *l2Cache) get(key string) (domain.Chunk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *l2Cache) put(key string, value domain.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *l2Cache) invalidateRepo(repoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, v := range c.data {
		if v.RepoID == repoID {
			delete(c.data, key)
		}
	}
}

// CachedStore wraps a Store with the 4.K three-tier cache: L1 in-process
// LRU, L2 shared map, L3 the wrapped Store itself with write-through on
// every Upsert.
type CachedStore struct {
	backend Store
	l1      *l1Cache
	l2      *l2Cache
	log     *logging.Logger

	// OnOp, if set, is called after every backend-facing operation with
	// the operation name and the cache tier (or backend name) that served
	// it, for the orchestrator's chunk store operation counters.
	OnOp func(op, tier string)
}

// NewCachedStore wraps backend with an L1 cache of the given capacity.
func NewCachedStore(backend Store, l1Capacity int) *CachedStore {
	return &CachedStore{
		backend: backend,
		l1:      newL1Cache(l1Capacity),
		l2:      newL2Cache(),
		log:     logging.Get(logging.CategoryChunkStore),
	}
}

func (c *CachedStore) reportOp(op, tier string) {
	if c.OnOp != nil {
		c.OnOp(op, tier)
	}
}

func (c *CachedStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if err := c.backend.Upsert(ctx, chunks); err != nil {
		return err
	}
	for _, chunk := range chunks {
		c.l1.put(chunk.ChunkID, chunk)
		c.l2.put(chunk.ChunkID, chunk)
	}
	c.reportOp("upsert", "backend")
	return nil
}

func (c *CachedStore) GetByID(ctx context.Context, chunkID string) (domain.Chunk, error) {
	if v, ok := c.l1.get(chunkID); ok {
		c.reportOp("get_by_id", "l1")
		return v, nil
	}
	if v, ok := c.l2.get(chunkID); ok {
		c.l1.put(chunkID, v)
		c.reportOp("get_by_id", "l2")
		return v, nil
	}
	v, err := c.backend.GetByID(ctx, chunkID)
	if err != nil {
		return domain.Chunk{}, err
	}
	c.l1.put(chunkID, v)
	c.l2.put(chunkID, v)
	c.reportOp("get_by_id", "backend")
	return v, nil
}

func (c *CachedStore) GetBatch(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	var missing []string
	out := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if v, ok := c.l1.get(id); ok {
			out = append(out, v)
			continue
		}
		if v, ok := c.l2.get(id); ok {
			c.l1.put(id, v)
			out = append(out, v)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := c.backend.GetBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, v := range fetched {
		c.l1.put(v.ChunkID, v)
		c.l2.put(v.ChunkID, v)
		out = append(out, v)
	}
	return out, nil
}

func (c *CachedStore) ListBySnapshot(ctx context.Context, repoID, snapshotID string, offset, limit int) (Page, error) {
	return c.backend.ListBySnapshot(ctx, repoID, snapshotID, offset, limit)
}

func (c *CachedStore) ListByFile(ctx context.Context, repoID, filePath string) ([]domain.Chunk, error) {
	return c.backend.ListByFile(ctx, repoID, filePath)
}

func (c *CachedStore) GetByLine(ctx context.Context, repoID, filePath string, line int) (domain.Chunk, error) {
	return c.backend.GetByLine(ctx, repoID, filePath, line)
}

func (c *CachedStore) GetByLines(ctx context.Context, repoID string, queries []LineQuery) (map[LineQuery]domain.Chunk, error) {
	return c.backend.GetByLines(ctx, repoID, queries)
}

func (c *CachedStore) SoftDelete(ctx context.Context, ids []string) error {
	if err := c.backend.SoftDelete(ctx, ids); err != nil {
		return err
	}
	for _, id := range ids {
		if v, ok := c.l1.get(id); ok {
			v.IsDeleted = true
			c.l1.put(id, v)
		}
		if v, ok := c.l2.get(id); ok {
			v.IsDeleted = true
			c.l2.put(id, v)
		}
	}
	return nil
}

// InvalidateRepo clears L1 and L2 entries for repoID, per 4.K's three-tier
// cache section. L3 (the backend) is untouched since it is the source of
// truth.
func (c *CachedStore) InvalidateRepo(repoID string) {
	c.l1.invalidateRepo(repoID)
	c.l2.invalidateRepo(repoID)
	c.log.Debug("chunkstore: invalidated cache for repo %s", repoID)
}
