package experience

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// SQLStore persists experience records in SQLite, surviving process
// restarts, unlike MemoryStore.
type SQLStore struct {
	db  *sql.DB
	log *logging.Logger
}

// NewSQLStore opens (creating if needed) a SQLite database at path and
// ensures the experience table exists.
func NewSQLStore(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("experience: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("experience: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("experience: failed to set journal mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS experience_records (
		task_id    TEXT PRIMARY KEY,
		strategy   TEXT NOT NULL,
		verdict    TEXT NOT NULL,
		success    INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("experience: failed to create schema: %w", err)
	}

	return &SQLStore{db: db, log: logging.Get(logging.CategoryOrchestrator)}, nil
}

func (s *SQLStore) Append(r Record) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO experience_records (task_id, strategy, verdict, success, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.TaskID, string(r.Strategy), string(r.Verdict), boolToInt(r.Success), r.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	)
	if err != nil {
		s.log.Error("failed to append experience record for %s: %v", r.TaskID, err)
	}
	return err
}

func (s *SQLStore) SimilarFailuresCount(strategy domain.ReasoningStrategy) int {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM experience_records WHERE strategy = ? AND success = 0`,
		string(strategy),
	).Scan(&count)
	if err != nil {
		s.log.Warn("failed to count similar failures for %s: %v", strategy, err)
		return 0
	}
	return count
}

func (s *SQLStore) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
