package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/caprica/fleet-server/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Runs only against a live database named by FLEET_TEST_POSTGRES_DSN.
func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("FLEET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FLEET_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer store.Close()

	rec := storage.MatchRecord{
		RoomID:     "pg-" + time.Now().Format(time.RFC3339Nano),
		Players:    [2]string{"Roslin", "Computer"},
		Bases:      [2]string{"colonial-one", "cloud-nine"},
		Influence:  [2]int{20, 11},
		Winner:     0,
		Turns:      12,
		FinishedAt: time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, store.SaveMatch(ctx, rec))

	got, err := store.ListMatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.RoomID, got[0].RoomID)
	assert.Equal(t, rec.Influence, got[0].Influence)
	assert.Equal(t, rec.Bases, got[0].Bases)
}

func TestSaveRejectsInvalidRecordBeforeQuerying(t *testing.T) {
	s := &Store{logger: zaptest.NewLogger(t)}
	err := s.SaveMatch(context.Background(), storage.MatchRecord{})
	assert.ErrorIs(t, err, storage.ErrInvalidRecord)
}
