package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func recordedGame(t *testing.T) (*Engine, *Replay, []*GameState) {
	t.Helper()
	e, s := newTestGame(t, 31)
	replay := NewReplay("game-31", s)
	states := []*GameState{s}

	for _, step := range []struct {
		seat   int
		action Action
	}{
		{0, Action{Type: ActionKeepHand}},
		{1, Action{Type: ActionKeepHand}},
	} {
		s = apply(t, e, s, step.seat, step.action)
		require.NoError(t, replay.Record(step.seat, step.action, s))
		states = append(states, s)
	}
	return e, replay, states
}

func TestReplayRecordsSteps(t *testing.T) {
	_, replay, states := recordedGame(t)
	require.Equal(t, 3, replay.Size())
	require.Len(t, replay.Steps, 2)

	for i, st := range states[1:] {
		sum, err := Checksum(st)
		require.NoError(t, err)
		assert.Equal(t, sum, replay.Steps[i].Checksum)
	}
	assert.Equal(t, 1, replay.Steps[1].Seat)
	assert.Nil(t, replay.StateAt(-1))
	assert.Nil(t, replay.StateAt(3))
	assert.Equal(t, states[2].Turn, replay.Last().Turn)
}

func TestReplayRecordsCopies(t *testing.T) {
	_, s := newTestGame(t, 32)
	replay := NewReplay("copies", s)
	s.Players[0].Influence = 99

	assert.NotEqual(t, 99, replay.StateAt(0).Players[0].Influence)
	assert.NotEqual(t, 99, replay.Initial.Players[0].Influence)
}

func TestReplaySaveLoadAndVerify(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	e, replay, states := recordedGame(t)

	require.NoError(t, replay.SaveToFile(dir))
	_, err := os.Stat(filepath.Join(dir, "game-31.replay"))
	require.NoError(t, err)

	loaded, err := LoadReplayFromFile(dir, "game-31")
	require.NoError(t, err)
	assert.Equal(t, "game-31", loaded.GameID)
	assert.Equal(t, 1, loaded.Size())
	require.Len(t, loaded.Steps, 2)

	require.NoError(t, loaded.Verify(e))
	require.Equal(t, len(states), loaded.Size())
	for i, st := range states {
		want, err := Checksum(st)
		require.NoError(t, err)
		got, err := Checksum(loaded.StateAt(i))
		require.NoError(t, err)
		assert.Equal(t, want, got, "state %d", i)
	}
}

func TestReplayVerifyDetectsTampering(t *testing.T) {
	e, replay, _ := recordedGame(t)
	replay.Steps[1].Checksum = "0000"

	err := replay.Verify(e)
	require.ErrorIs(t, err, ErrReplayDiverged)
	assert.Contains(t, err.Error(), "step 1")
	assert.Equal(t, 3, replay.Size(), "failed verify keeps the recorded states")

	replay.Steps[1].Seat = 0
	assert.ErrorIs(t, replay.Verify(e), ErrReplayDiverged)
}

func TestReplayLoadMissingFile(t *testing.T) {
	_, err := LoadReplayFromFile(t.TempDir(), "missing")
	assert.Error(t, err)
}

func TestReplayRecorder(t *testing.T) {
	dir := t.TempDir()
	recorder := NewReplayRecorder(zaptest.NewLogger(t), dir)
	e, s := newTestGame(t, 33)

	recorder.Record("g1", 0, Action{Type: ActionKeepHand}, s)
	assert.False(t, recorder.IsRecording("g1"))

	recorder.StartRecording("g1", s)
	next := apply(t, e, s, 0, Action{Type: ActionKeepHand})
	recorder.Record("g1", 0, Action{Type: ActionKeepHand}, next)
	assert.True(t, recorder.IsRecording("g1"))

	replay, err := recorder.Finish("g1")
	require.NoError(t, err)
	assert.Equal(t, 2, replay.Size())
	assert.False(t, recorder.IsRecording("g1"))

	loaded, err := recorder.Load("g1")
	require.NoError(t, err)
	require.NoError(t, loaded.Verify(e))
	assert.Equal(t, 2, loaded.Size())

	_, err = recorder.Finish("g1")
	assert.Error(t, err)
}

func TestReplayRecorderMemoryOnly(t *testing.T) {
	recorder := NewReplayRecorder(zaptest.NewLogger(t), "")
	_, s := newTestGame(t, 34)

	recorder.StartRecording("g2", s)
	replay, err := recorder.Finish("g2")
	require.NoError(t, err)
	assert.Equal(t, 1, replay.Size())
}
