// Package sqlite provides a SQLite-backed snapshot store. Ended sessions keep
// their GameResult in a separate results table, so the store doubles as the
// result archive once snapshots are evicted from faster caches.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	game_type TEXT NOT NULL,
	status TEXT NOT NULL,
	snapshot_json TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

CREATE TABLE IF NOT EXISTS results (
	session_id TEXT PRIMARY KEY,
	game_type TEXT NOT NULL,
	ended_at INTEGER NOT NULL,
	result_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_game_type ON results(game_type, ended_at);
`

// Store persists snapshots and results in SQLite.
type Store struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, domain.ConfigError("sqlite path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, domain.IoError(fmt.Errorf("create database directory: %w", err))
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, domain.IoError(fmt.Errorf("open sqlite db: %w", err))
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, domain.IoError(fmt.Errorf("ping sqlite db: %w", err))
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, domain.IoError(fmt.Errorf("create schema: %w", err))
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the snapshot; an ended snapshot also archives its result.
func (s *Store) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return domain.SerializationError(fmt.Errorf("marshal snapshot: %w", err))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.IoError(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, game_type, status, snapshot_json, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   game_type = excluded.game_type,
		   status = excluded.status,
		   snapshot_json = excluded.snapshot_json,
		   updated_at = excluded.updated_at`,
		sessionID, string(snap.GameType), string(snap.Status), string(data), toMillis(time.Now()),
	)
	if err != nil {
		return domain.IoError(fmt.Errorf("upsert session: %w", err))
	}

	if snap.Result != nil {
		if err := archive(ctx, tx, sessionID, snap.Result); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.IoError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func archive(ctx context.Context, tx *sql.Tx, sessionID string, res *domain.GameResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return domain.SerializationError(fmt.Errorf("marshal result: %w", err))
	}
	endedAt := res.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (session_id, game_type, ended_at, result_json)
		 VALUES (?, ?, ?, ?)`,
		sessionID, string(res.GameType), toMillis(endedAt), string(data),
	)
	if err != nil {
		return domain.IoError(fmt.Errorf("archive result: %w", err))
	}
	return nil
}

// Load returns the stored snapshot or GameNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot_json FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.GameNotFound(sessionID)
	}
	if err != nil {
		return nil, domain.IoError(fmt.Errorf("query session: %w", err))
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, domain.SerializationError(fmt.Errorf("unmarshal snapshot: %w", err))
	}
	return &snap, nil
}

// Delete removes the snapshot. Archived results are kept.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return domain.IoError(fmt.Errorf("delete session: %w", err))
	}
	return nil
}

// List returns stored session ids, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY updated_at DESC, session_id`)
	if err != nil {
		return nil, domain.IoError(fmt.Errorf("list sessions: %w", err))
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.IoError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IoError(err)
	}
	return ids, nil
}

// Results returns archived results, newest first. An empty gameType matches all.
func (s *Store) Results(ctx context.Context, gameType domain.GameType, limit int) ([]domain.GameResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT result_json
		 FROM results
		 WHERE ? = '' OR game_type = ?
		 ORDER BY ended_at DESC
		 LIMIT ?`,
		string(gameType), string(gameType), limit,
	)
	if err != nil {
		return nil, domain.IoError(fmt.Errorf("query results: %w", err))
	}
	defer rows.Close()

	results := []domain.GameResult{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, domain.IoError(err)
		}
		var res domain.GameResult
		if err := json.Unmarshal([]byte(data), &res); err != nil {
			return nil, domain.SerializationError(err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IoError(err)
	}
	return results, nil
}
