// Package storage records finished matches.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRecord is returned when a match record is missing required fields.
var ErrInvalidRecord = errors.New("invalid match record")

// NoWinner marks a match that ended without a winner.
const NoWinner = -1

// MatchRecord summarises one finished game.
type MatchRecord struct {
	ID         string
	RoomID     string
	Players    [2]string
	Bases      [2]string
	Influence  [2]int
	Winner     int
	Turns      int
	Checksum   string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Prepare fills the id and finish time when unset and checks required fields.
func (r *MatchRecord) Prepare() error {
	if strings.TrimSpace(r.RoomID) == "" {
		return fmt.Errorf("%w: room id is required", ErrInvalidRecord)
	}
	if r.Winner < NoWinner || r.Winner > 1 {
		return fmt.Errorf("%w: winner %d out of range", ErrInvalidRecord, r.Winner)
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = r.FinishedAt
	}
	return nil
}

// Store persists match records.
type Store interface {
	SaveMatch(ctx context.Context, rec MatchRecord) error
	// ListMatches returns the most recent matches first, at most limit of them.
	ListMatches(ctx context.Context, limit int) ([]MatchRecord, error)
	Close() error
}

// MemoryStore keeps records in process. It backs tests and the "none" driver.
type MemoryStore struct {
	mu      sync.RWMutex
	records []MatchRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveMatch(ctx context.Context, rec MatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Prepare(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MemoryStore) ListMatches(ctx context.Context, limit int) ([]MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := append([]MatchRecord(nil), m.records...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
