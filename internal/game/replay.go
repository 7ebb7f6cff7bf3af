package game

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 2

// ErrReplayDiverged is returned when re-applying a replay's actions does not
// reproduce the recorded checksums.
var ErrReplayDiverged = errors.New("replay diverged")

// ReplayStep is one committed action and the checksum of the state it
// produced.
type ReplayStep struct {
	Seat     int
	Action   Action
	Checksum string
}

// Replay is a game's initial state plus every committed action. States holds
// the initial state followed by the result of each step; a replay read from
// disk only has the initial state until Verify rebuilds the rest.
type Replay struct {
	GameID  string
	Initial *GameState
	Steps   []ReplayStep
	states  []*GameState
	mu      sync.RWMutex
}

// NewReplay starts a replay from a copy of initial.
func NewReplay(gameID string, initial *GameState) *Replay {
	s := initial.Clone()
	return &Replay{
		GameID:  gameID,
		Initial: s,
		states:  []*GameState{s},
	}
}

// Record appends an action taken by seat and the state it led to.
func (r *Replay) Record(seat int, action Action, next *GameState) error {
	sum, err := Checksum(next)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, ReplayStep{Seat: seat, Action: action, Checksum: sum})
	r.states = append(r.states, next.Clone())
	return nil
}

// Size returns the number of known states.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// StateAt returns the state at index, or nil.
func (r *Replay) StateAt(index int) *GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.states) {
		return nil
	}
	return r.states[index]
}

// Last returns the latest known state.
func (r *Replay) Last() *GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[len(r.states)-1]
}

// Verify re-applies every step to the initial state with e, checks each
// result against its recorded checksum and keeps the rebuilt states.
func (r *Replay) Verify(e *Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make([]*GameState, 0, len(r.Steps)+1)
	s := r.Initial.Clone()
	states = append(states, s)
	for i, step := range r.Steps {
		next, err := e.ApplyAction(s, step.Seat, step.Action)
		if err != nil {
			return fmt.Errorf("%w at step %d: %w", ErrReplayDiverged, i, err)
		}
		sum, err := Checksum(next)
		if err != nil {
			return err
		}
		if sum != step.Checksum {
			return fmt.Errorf("%w at step %d: %s by seat %d", ErrReplayDiverged, i, step.Action.Type, step.Seat)
		}
		states = append(states, next)
		s = next
	}
	r.states = states
	return nil
}

type replayFile struct {
	Version int
	GameID  string
	SavedAt time.Time
	Initial *GameState
	Steps   []ReplayStep
}

func replayPath(directory, gameID string) string {
	return filepath.Join(directory, gameID+".replay")
}

// SaveToFile writes the initial state and the action log to
// <directory>/<game id>.replay as gzipped gob.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create replay directory: %w", err)
	}
	file, err := os.Create(replayPath(directory, r.GameID))
	if err != nil {
		return fmt.Errorf("failed to create replay file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	err = gob.NewEncoder(zw).Encode(replayFile{
		Version: replayVersion,
		GameID:  r.GameID,
		SavedAt: time.Now(),
		Initial: r.Initial,
		Steps:   r.Steps,
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode replay: %w", err)
	}
	return zw.Close()
}

// LoadReplayFromFile reads a replay written by SaveToFile. Call Verify to
// rebuild its states.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, gameID))
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay: %w", err)
	}
	defer zr.Close()

	var f replayFile
	if err := gob.NewDecoder(zr).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode replay: %w", err)
	}
	if f.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", f.Version)
	}
	if f.Initial == nil {
		return nil, fmt.Errorf("replay %s has no initial state", f.GameID)
	}

	return &Replay{
		GameID:  f.GameID,
		Initial: f.Initial,
		Steps:   f.Steps,
		states:  []*GameState{f.Initial},
	}, nil
}

// ReplayRecorder keeps replays of running games and writes them out when a
// game ends.
type ReplayRecorder struct {
	logger  *zap.Logger
	saveDir string

	mu      sync.RWMutex
	replays map[string]*Replay
}

// NewReplayRecorder creates a recorder writing to saveDir. An empty saveDir
// keeps replays in memory only.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		saveDir: saveDir,
		replays: make(map[string]*Replay),
	}
}

// StartRecording begins a replay of gameID from initial.
func (rr *ReplayRecorder) StartRecording(gameID string, initial *GameState) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[gameID] = NewReplay(gameID, initial)
	rr.logger.Debug("started replay recording", zap.String("game_id", gameID))
}

// Record appends a step to gameID's replay if it is being recorded.
func (rr *ReplayRecorder) Record(gameID string, seat int, action Action, next *GameState) {
	replay, ok := rr.Replay(gameID)
	if !ok {
		return
	}
	if err := replay.Record(seat, action, next); err != nil {
		rr.logger.Error("failed to record replay step", zap.String("game_id", gameID), zap.Error(err))
	}
}

// Replay returns the in-memory replay for gameID.
func (rr *ReplayRecorder) Replay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	replay, ok := rr.replays[gameID]
	return replay, ok
}

// IsRecording reports whether gameID has an in-memory replay.
func (rr *ReplayRecorder) IsRecording(gameID string) bool {
	_, ok := rr.Replay(gameID)
	return ok
}

// Finish stops recording gameID and, when a save directory is configured,
// writes the replay to disk.
func (rr *ReplayRecorder) Finish(gameID string) (*Replay, error) {
	rr.mu.Lock()
	replay, ok := rr.replays[gameID]
	delete(rr.replays, gameID)
	rr.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no replay found for game %s", gameID)
	}
	if rr.saveDir == "" {
		return replay, nil
	}
	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return replay, fmt.Errorf("failed to save replay: %w", err)
	}
	rr.logger.Info("saved replay",
		zap.String("game_id", gameID),
		zap.Int("steps", len(replay.Steps)),
		zap.String("directory", rr.saveDir),
	)
	return replay, nil
}

// Load reads a saved replay from the recorder's directory.
func (rr *ReplayRecorder) Load(gameID string) (*Replay, error) {
	return LoadReplayFromFile(rr.saveDir, gameID)
}
