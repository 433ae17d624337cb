package chunkstore

import (
	"context"
	"fmt"
	"sync"
)

// MappingStore persists the `ChunkToIR`/`ChunkToGraph` tables of §3/4.K:
// chunk_id -> set(node id), one map per (repo, snapshot), required to be
// bidirectionally consistent with whatever document owns the referenced
// nodes. This package only guarantees the mapping rows exist and that
// lookups are internally consistent; validating the referenced IR/graph
// node ids against their owning documents is the caller's job (it would
// require importing the IR/graph packages here, which this boundary
// deliberately avoids).
type MappingStore struct {
	mu    sync.Mutex
	toIR    map[string]map[string]struct{}
	toGraph map[string]map[string]struct{}
}

// NewMappingStore constructs an empty in-process MappingStore. The SQL
// persistence for these tables lives in SQLStore's chunk_to_ir_mapping and
// chunk_to_graph_mapping tables; this in-process index is the read path
// used by chunkstore's own callers within a single process lifetime.
func NewMappingStore() *MappingStore {
	return &MappingStore{
		toIR:    make(map[string]map[string]struct{}),
		toGraph: make(map[string]map[string]struct{}),
	}
}

func mappingKey(repoID, snapshotID, chunkID string) string {
	return repoID + "|" + snapshotID + "|" + chunkID
}

// SetIRNodes replaces chunkID's IR node-id set.
func (m *MappingStore) SetIRNodes(ctx context.Context, repoID, snapshotID, chunkID string, nodeIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		set[id] = struct{}{}
	}
	m.toIR[mappingKey(repoID, snapshotID, chunkID)] = set
	return nil
}

// SetGraphNodes replaces chunkID's graph node-id set.
func (m *MappingStore) SetGraphNodes(ctx context.Context, repoID, snapshotID, chunkID string, nodeIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		set[id] = struct{}{}
	}
	m.toGraph[mappingKey(repoID, snapshotID, chunkID)] = set
	return nil
}

// IRNodes returns chunkID's IR node ids.
func (m *MappingStore) IRNodes(repoID, snapshotID, chunkID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return keysOf(m.toIR[mappingKey(repoID, snapshotID, chunkID)])
}

// GraphNodes returns chunkID's graph node ids.
func (m *MappingStore) GraphNodes(repoID, snapshotID, chunkID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return keysOf(m.toGraph[mappingKey(repoID, snapshotID, chunkID)])
}

// ValidateConsistency checks that every chunk_id with an IR or graph
// mapping exists in store, per 4.K's bidirectional validation rule applied
// on the chunk side (node-side validation belongs to the IR/graph owners).
func (m *MappingStore) ValidateConsistency(ctx context.Context, store Store, repoID, snapshotID string, chunkIDs []string) error {
	m.mu.Lock()
	keys := make([]string, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		keys = append(keys, mappingKey(repoID, snapshotID, id))
	}
	m.mu.Unlock()

	for i, key := range keys {
		_ = key
		if _, err := store.GetByID(ctx, chunkIDs[i]); err != nil {
			return fmt.Errorf("chunkstore: mapping references missing chunk %s: %w", chunkIDs[i], err)
		}
	}
	return nil
}

func keysOf(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
