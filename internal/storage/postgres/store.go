// Package postgres provides a PostgreSQL-backed match store.
package postgres

import (
	"context"
	"fmt"

	"github.com/caprica/fleet-server/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schema = `CREATE TABLE IF NOT EXISTS matches (
	id          UUID PRIMARY KEY,
	room_id     TEXT NOT NULL,
	players     TEXT[] NOT NULL,
	bases       TEXT[] NOT NULL,
	influence   INTEGER[] NOT NULL,
	winner      SMALLINT NOT NULL,
	turns       INTEGER NOT NULL,
	checksum    TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS matches_finished_at ON matches (finished_at DESC)`

// Store persists match records in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn, verifies the connection and creates the schema.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	stats := pool.Stat()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SaveMatch inserts one match record.
func (s *Store) SaveMatch(ctx context.Context, rec storage.MatchRecord) error {
	if err := rec.Prepare(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matches (id, room_id, players, bases, influence, winner, turns, checksum, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.RoomID, rec.Players[:], rec.Bases[:], rec.Influence[:],
		rec.Winner, rec.Turns, rec.Checksum, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	s.logger.Debug("match saved", zap.String("match_id", rec.ID), zap.String("room_id", rec.RoomID))
	return nil
}

// ListMatches returns the most recent matches first.
func (s *Store) ListMatches(ctx context.Context, limit int) ([]storage.MatchRecord, error) {
	query := `
		SELECT id::text, room_id, players, bases, influence, winner, turns, checksum, started_at, finished_at
		FROM matches
		ORDER BY finished_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []storage.MatchRecord
	for rows.Next() {
		var (
			rec            storage.MatchRecord
			players, bases []string
			influence      []int32
		)
		if err := rows.Scan(&rec.ID, &rec.RoomID, &players, &bases, &influence,
			&rec.Winner, &rec.Turns, &rec.Checksum, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		copy(rec.Players[:], players)
		copy(rec.Bases[:], bases)
		for i := 0; i < len(influence) && i < len(rec.Influence); i++ {
			rec.Influence[i] = int(influence[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}
