// Package sqlite provides a SQLite-backed match store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caprica/fleet-server/internal/storage"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS matches (
	id          TEXT PRIMARY KEY,
	room_id     TEXT NOT NULL,
	player_0    TEXT NOT NULL,
	player_1    TEXT NOT NULL,
	base_0      TEXT NOT NULL,
	base_1      TEXT NOT NULL,
	influence_0 INTEGER NOT NULL,
	influence_1 INTEGER NOT NULL,
	winner      INTEGER NOT NULL,
	turns       INTEGER NOT NULL,
	checksum    TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS matches_finished_at ON matches (finished_at DESC);`

// Store persists match records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and creates the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveMatch inserts one match record.
func (s *Store) SaveMatch(ctx context.Context, rec storage.MatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := rec.Prepare(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO matches (
		   id, room_id, player_0, player_1, base_0, base_1,
		   influence_0, influence_1, winner, turns, checksum,
		   started_at, finished_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RoomID, rec.Players[0], rec.Players[1], rec.Bases[0], rec.Bases[1],
		rec.Influence[0], rec.Influence[1], rec.Winner, rec.Turns, rec.Checksum,
		toMillis(rec.StartedAt), toMillis(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	return nil
}

// ListMatches returns the most recent matches first.
func (s *Store) ListMatches(ctx context.Context, limit int) ([]storage.MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, room_id, player_0, player_1, base_0, base_1,
		        influence_0, influence_1, winner, turns, checksum,
		        started_at, finished_at
		   FROM matches
		  ORDER BY finished_at DESC, rowid DESC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []storage.MatchRecord
	for rows.Next() {
		var (
			rec               storage.MatchRecord
			started, finished int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.RoomID, &rec.Players[0], &rec.Players[1], &rec.Bases[0], &rec.Bases[1],
			&rec.Influence[0], &rec.Influence[1], &rec.Winner, &rec.Turns, &rec.Checksum,
			&started, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		rec.StartedAt = fromMillis(started)
		rec.FinishedAt = fromMillis(finished)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}
