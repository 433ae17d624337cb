package domain

import "fmt"

// Chunk is the hierarchical indexing unit of §3/4.K: a span of source
// attributed to a repo/snapshot, optionally nested under a parent chunk.
type Chunk struct {
	ChunkID             string                 `json:"chunk_id"`
	RepoID              string                 `json:"repo_id"`
	SnapshotID          string                 `json:"snapshot_id"`
	ParentID            string                 `json:"parent_id,omitempty"`
	Children            []string               `json:"children,omitempty"`
	Kind                ChunkKind              `json:"kind"`
	FQN                 string                 `json:"fqn"`
	FilePath            string                 `json:"file_path,omitempty"`
	StartLine           int                    `json:"start_line,omitempty"`
	EndLine             int                    `json:"end_line,omitempty"`
	OriginalStartLine   int                    `json:"original_start_line,omitempty"`
	OriginalEndLine     int                    `json:"original_end_line,omitempty"`
	ContentHash         string                 `json:"content_hash"`
	Language            string                 `json:"language,omitempty"`
	SymbolVisibility    SymbolVisibility       `json:"symbol_visibility,omitempty"`
	SymbolID            string                 `json:"symbol_id,omitempty"`
	SymbolOwnerID       string                 `json:"symbol_owner_id,omitempty"`
	Summary             string                 `json:"summary,omitempty"`
	Importance          float64                `json:"importance,omitempty"`
	Version             int                    `json:"version"`
	LastIndexedCommit   string                 `json:"last_indexed_commit,omitempty"`
	IsDeleted           bool                   `json:"is_deleted"`
	IsTest              bool                   `json:"is_test,omitempty"`
	IsOverlay           bool                   `json:"is_overlay"`
	OverlaySessionID    string                 `json:"overlay_session_id,omitempty"`
	BaseChunkID         string                 `json:"base_chunk_id,omitempty"`
	Attrs               map[string]interface{} `json:"attrs,omitempty"`
}

// ChunkHistory is the churn/ownership side-table of §6's persisted state
// layout, kept separate from Chunk since it is analysis output rather than
// structural fact.
type ChunkHistory struct {
	ChunkID           string         `json:"chunk_id"`
	Author            string         `json:"author,omitempty"`
	LastModifiedBy    string         `json:"last_modified_by,omitempty"`
	LastModifiedAt    string         `json:"last_modified_at,omitempty"`
	CommitSHA         string         `json:"commit_sha,omitempty"`
	ChurnScore        float64        `json:"churn_score,omitempty"`
	StabilityIndex    float64        `json:"stability_index,omitempty"`
	ContributorCount  int            `json:"contributor_count,omitempty"`
	CoChangedFiles    []string       `json:"co_changed_files,omitempty"`
	CoChangeStrength  map[string]float64 `json:"co_change_strength,omitempty"`
	FirstCommitAt     string         `json:"first_commit_at,omitempty"`
	DaysSinceLastChange int          `json:"days_since_last_change,omitempty"`
	LastAnalyzedAt    string         `json:"last_analyzed_at,omitempty"`
	AnalysisVersion   int            `json:"analysis_version,omitempty"`
}

// ValidateBounds enforces the boundary invariant `start_line <= end_line`
// (4.K invariant 2). Chunks without line information (repo/project/module
// aggregates) are exempt.
func (c Chunk) ValidateBounds() error {
	if c.StartLine == 0 && c.EndLine == 0 {
		return nil
	}
	if c.StartLine > c.EndLine {
		return fmt.Errorf("chunk %s: start_line %d > end_line %d", c.ChunkID, c.StartLine, c.EndLine)
	}
	return nil
}

// Overlaps reports whether c and other occupy intersecting line spans,
// used by the sibling-overlap boundary invariant (4.K invariant 1).
func (c Chunk) Overlaps(other Chunk) bool {
	if c.StartLine == 0 && c.EndLine == 0 {
		return false
	}
	if other.StartLine == 0 && other.EndLine == 0 {
		return false
	}
	return c.StartLine <= other.EndLine && other.StartLine <= c.EndLine
}

// ChunkRefreshResult enumerates the outcome of an incremental refresh pass
// (4.K "Incremental refresh").
type ChunkRefreshResult struct {
	Created   []string `json:"created"`
	Updated   []string `json:"updated"`
	Deleted   []string `json:"deleted"`
	Unchanged []string `json:"unchanged"`
}
