package chunkstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// schemaDDL creates the §6 persisted state layout: chunks, chunk_history,
// and the two symmetric mapping tables. Grounded on the teacher's
// internal/store/local_core.go/migrations.go idiom of idempotent
// `CREATE TABLE IF NOT EXISTS` blocks executed once at construction.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id TEXT PRIMARY KEY,
	repo_id TEXT NOT NULL,
	snapshot_id TEXT NOT NULL,
	parent_id TEXT,
	kind TEXT NOT NULL,
	fqn TEXT,
	file_path TEXT,
	start_line INTEGER,
	end_line INTEGER,
	original_start_line INTEGER,
	original_end_line INTEGER,
	content_hash TEXT,
	version INTEGER NOT NULL DEFAULT 1,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	last_indexed_commit TEXT,
	summary TEXT,
	importance REAL,
	attrs TEXT,
	is_test INTEGER NOT NULL DEFAULT 0,
	is_overlay INTEGER NOT NULL DEFAULT 0,
	overlay_session_id TEXT,
	base_chunk_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunks_repo_snapshot ON chunks(repo_id, snapshot_id);
CREATE INDEX IF NOT EXISTS idx_chunks_repo_file ON chunks(repo_id, file_path);
CREATE INDEX IF NOT EXISTS idx_chunks_parent ON chunks(parent_id);

CREATE TABLE IF NOT EXISTS chunk_history (
	chunk_id TEXT PRIMARY KEY,
	author TEXT,
	last_modified_by TEXT,
	last_modified_at DATETIME,
	commit_sha TEXT,
	churn_score REAL,
	stability_index REAL,
	contributor_count INTEGER,
	co_changed_files TEXT,
	co_change_strength TEXT,
	first_commit_at DATETIME,
	days_since_last_change INTEGER,
	last_analyzed_at DATETIME,
	analysis_version INTEGER
);

CREATE TABLE IF NOT EXISTS chunk_to_graph_mapping (
	repo_id TEXT NOT NULL,
	snapshot_id TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	graph_node_ids TEXT,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY(repo_id, snapshot_id, chunk_id)
);

CREATE TABLE IF NOT EXISTS chunk_to_ir_mapping (
	repo_id TEXT NOT NULL,
	snapshot_id TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	ir_node_ids TEXT,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY(repo_id, snapshot_id, chunk_id)
);

CREATE TABLE IF NOT EXISTS chunk_embeddings (
	chunk_id TEXT PRIMARY KEY,
	embedding BLOB,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// SQLStore is the production 4.K backend: persistent, survives process
// restarts, and serializes every mutation behind a single mutex exactly
// like the teacher's LocalStore does over its own SQLite connection.
type SQLStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logging.Logger
}

// NewSQLStore opens (creating if absent) a SQLite database at path using
// whichever driver this build registered (see driver.go), applies the
// schema, and tunes pragmas the way the teacher's NewLocalStore does.
func NewSQLStore(path string) (*SQLStore, error) {
	log := logging.Get(logging.CategoryChunkStore)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("chunkstore: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open(sqlDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debug("chunkstore: pragma %q failed: %v", pragma, err)
		}
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("chunkstore: apply schema: %w", err)
	}

	log.Info("chunkstore: SQLStore opened at %s (driver=%s)", path, sqlDriverName)
	return &SQLStore{db: db, log: log}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deduped := make(map[string]domain.Chunk, len(chunks))
	order := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, exists := deduped[c.ChunkID]; !exists {
			order = append(order, c.ChunkID)
		}
		deduped[c.ChunkID] = c
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chunkstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range order {
		c := deduped[id]
		if err := c.ValidateBounds(); err != nil {
			return err
		}

		siblings, err := s.siblingsTx(ctx, tx, c.RepoID, c.ParentID, c.FilePath)
		if err != nil {
			return err
		}
		if err := checkOverlap(c, siblings); err != nil {
			return err
		}

		var existingVersion int
		err = tx.QueryRowContext(ctx, `SELECT version FROM chunks WHERE chunk_id = ?`, c.ChunkID).Scan(&existingVersion)
		switch {
		case err == sql.ErrNoRows:
			c.Version = 1
		case err != nil:
			return fmt.Errorf("chunkstore: read version for %s: %w", c.ChunkID, err)
		default:
			c.Version = existingVersion + 1
		}

		attrsJSON, err := json.Marshal(c.Attrs)
		if err != nil {
			return fmt.Errorf("chunkstore: marshal attrs for %s: %w", c.ChunkID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (
				chunk_id, repo_id, snapshot_id, parent_id, kind, fqn, file_path,
				start_line, end_line, original_start_line, original_end_line,
				content_hash, version, is_deleted, last_indexed_commit, summary,
				importance, attrs, is_test, is_overlay, overlay_session_id,
				base_chunk_id, updated_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
			ON CONFLICT(chunk_id) DO UPDATE SET
				repo_id=excluded.repo_id, snapshot_id=excluded.snapshot_id,
				parent_id=excluded.parent_id, kind=excluded.kind, fqn=excluded.fqn,
				file_path=excluded.file_path, start_line=excluded.start_line,
				end_line=excluded.end_line, original_start_line=excluded.original_start_line,
				original_end_line=excluded.original_end_line, content_hash=excluded.content_hash,
				version=excluded.version, is_deleted=excluded.is_deleted,
				last_indexed_commit=excluded.last_indexed_commit, summary=excluded.summary,
				importance=excluded.importance, attrs=excluded.attrs, is_test=excluded.is_test,
				is_overlay=excluded.is_overlay, overlay_session_id=excluded.overlay_session_id,
				base_chunk_id=excluded.base_chunk_id, updated_at=CURRENT_TIMESTAMP
		`,
			c.ChunkID, c.RepoID, c.SnapshotID, c.ParentID, string(c.Kind), c.FQN, c.FilePath,
			c.StartLine, c.EndLine, c.OriginalStartLine, c.OriginalEndLine,
			c.ContentHash, c.Version, boolToInt(c.IsDeleted), c.LastIndexedCommit, c.Summary,
			c.Importance, string(attrsJSON), boolToInt(c.IsTest), boolToInt(c.IsOverlay), c.OverlaySessionID,
			c.BaseChunkID,
		)
		if err != nil {
			return fmt.Errorf("chunkstore: upsert %s: %w", c.ChunkID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) siblingsTx(ctx context.Context, tx *sql.Tx, repoID, parentID, filePath string) ([]domain.Chunk, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT chunk_id, repo_id, snapshot_id, parent_id, kind, file_path, start_line, end_line, is_deleted
		FROM chunks WHERE repo_id = ? AND parent_id = ? AND file_path = ?
	`, repoID, parentID, filePath)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: siblings query: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var kind string
		var isDeleted int
		if err := rows.Scan(&c.ChunkID, &c.RepoID, &c.SnapshotID, &c.ParentID, &kind, &c.FilePath, &c.StartLine, &c.EndLine, &isDeleted); err != nil {
			return nil, err
		}
		c.Kind = domain.ChunkKind(kind)
		c.IsDeleted = isDeleted != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetByID(ctx context.Context, chunkID string) (domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanOne(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE chunk_id = ?`, chunkID)
}

func (s *SQLStore) GetBatch(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE chunk_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: batch query: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *SQLStore) ListBySnapshot(ctx context.Context, repoID, snapshotID string, offset, limit int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks
		WHERE repo_id = ? AND snapshot_id = ? AND is_deleted = 0
		ORDER BY chunk_id LIMIT ? OFFSET ?
	`, repoID, snapshotID, limit+1, offset)
	if err != nil {
		return Page{}, fmt.Errorf("chunkstore: list by snapshot: %w", err)
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		return Page{}, err
	}

	page := Page{Chunks: chunks}
	if len(chunks) > limit {
		page.Chunks = chunks[:limit]
		page.HasMore = true
		page.NextOffset = offset + limit
	}
	return page, nil
}

func (s *SQLStore) ListByFile(ctx context.Context, repoID, filePath string) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks
		WHERE repo_id = ? AND file_path = ? AND is_deleted = 0
		ORDER BY chunk_id
	`, repoID, filePath)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: list by file: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *SQLStore) GetByLine(ctx context.Context, repoID, filePath string, line int) (domain.Chunk, error) {
	candidates, err := s.ListByFile(ctx, repoID, filePath)
	if err != nil {
		return domain.Chunk{}, err
	}
	idx := pickByLine(candidates, line)
	if idx == -1 {
		return domain.Chunk{}, ErrNotFound
	}
	return candidates[idx], nil
}

func (s *SQLStore) GetByLines(ctx context.Context, repoID string, queries []LineQuery) (map[LineQuery]domain.Chunk, error) {
	out := make(map[LineQuery]domain.Chunk, len(queries))
	cache := make(map[string][]domain.Chunk)
	for _, q := range queries {
		candidates, ok := cache[q.FilePath]
		if !ok {
			var err error
			candidates, err = s.ListByFile(ctx, repoID, q.FilePath)
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

func (s *SQLStore) SoftDelete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chunkstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			UPDATE chunks SET is_deleted = 1, version = version + 1, updated_at = CURRENT_TIMESTAMP
			WHERE chunk_id = ?
		`, id); err != nil {
			return fmt.Errorf("chunkstore: soft delete %s: %w", id, err)
		}
	}
	return tx.Commit()
}

const chunkColumns = `
	chunk_id, repo_id, snapshot_id, parent_id, kind, fqn, file_path,
	start_line, end_line, original_start_line, original_end_line,
	content_hash, version, is_deleted, last_indexed_commit, summary,
	importance, attrs, is_test, is_overlay, overlay_session_id, base_chunk_id
`

func (s *SQLStore) scanOne(ctx context.Context, query string, args ...interface{}) (domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("chunkstore: query: %w", err)
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		return domain.Chunk{}, err
	}
	if len(chunks) == 0 {
		return domain.Chunk{}, ErrNotFound
	}
	return chunks[0], nil
}

func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var kind, attrsJSON string
		var isDeleted, isTest, isOverlay int
		if err := rows.Scan(
			&c.ChunkID, &c.RepoID, &c.SnapshotID, &c.ParentID, &kind, &c.FQN, &c.FilePath,
			&c.StartLine, &c.EndLine, &c.OriginalStartLine, &c.OriginalEndLine,
			&c.ContentHash, &c.Version, &isDeleted, &c.LastIndexedCommit, &c.Summary,
			&c.Importance, &attrsJSON, &isTest, &isOverlay, &c.OverlaySessionID, &c.BaseChunkID,
		); err != nil {
			return nil, fmt.Errorf("chunkstore: scan: %w", err)
		}
		c.Kind = domain.ChunkKind(kind)
		c.IsDeleted = isDeleted != 0
		c.IsTest = isTest != 0
		c.IsOverlay = isOverlay != 0
		if attrsJSON != "" {
			_ = json.Unmarshal([]byte(attrsJSON), &c.Attrs)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func inClause(ids []string) (string, []interface{}) {
	placeholders := ""
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	return placeholders, args
}
