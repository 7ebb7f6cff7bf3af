// Package tournament runs base ladders: round-robin series of computer
// matches in which every base meets every other base, scored 3/1/0.
package tournament

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAlreadyStarted  = errors.New("ladder already started")
	ErrNotEnoughBases  = errors.New("ladder needs at least two bases")
	ErrDuplicateBase   = errors.New("base already entered")
	ErrUnknownEntrant  = errors.New("base not entered")
	ErrPairingNotFound = errors.New("pairing not found")
	ErrInvalidRound    = errors.New("invalid round number")
)

// Points awarded per result.
const (
	WinPoints  = 3
	DrawPoints = 1
)

// State represents the state of a ladder
type State int

const (
	StateWaiting State = iota
	StateInProgress
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Entrant is a base taking part in the ladder.
type Entrant struct {
	Base   string
	Points int
	Wins   int
	Losses int
	Draws  int
}

// Pairing is one match of a round. Winner is empty for a draw or an
// unplayed match; Played tells them apart.
type Pairing struct {
	Home   string
	Away   string
	Seed   int64
	Winner string
	Turns  int
	Played bool
}

// Round groups the pairings played together.
type Round struct {
	Number   int
	Pairings []*Pairing
	Finished bool
}

// EntrantSnapshot captures entrant data for external use.
type EntrantSnapshot struct {
	Base   string
	Points int
	Wins   int
	Losses int
	Draws  int
}

// PairingSnapshot captures pairing data for external use.
type PairingSnapshot struct {
	Home   string
	Away   string
	Seed   int64
	Winner string
	Turns  int
	Played bool
}

// RoundSnapshot captures round data for external use.
type RoundSnapshot struct {
	Number   int
	Finished bool
	Pairings []PairingSnapshot
}

// Snapshot captures a consistent view of a ladder.
type Snapshot struct {
	ID           string
	Name         string
	State        State
	Standings    []EntrantSnapshot
	Rounds       []RoundSnapshot
	CurrentRound int
	NumRounds    int
	CreateTime   time.Time
	StartTime    *time.Time
	EndTime      *time.Time
}

// Ladder is a round-robin between bases.
type Ladder struct {
	ID           string
	Name         string
	State        State
	Entrants     map[string]*Entrant
	EntrantOrder []string
	Rounds       []*Round
	CurrentRound int
	Legs         int
	Seed         int64
	CreateTime   time.Time
	StartTime    *time.Time
	EndTime      *time.Time
	schedule     [][][2]string
	matches      int
	mu           sync.RWMutex
}

// NewLadder creates a ladder in which every pair of bases meets legs times,
// swapping seats each leg. Match seeds count up from seed.
func NewLadder(name string, legs int, seed int64) *Ladder {
	if legs < 1 {
		legs = 1
	}
	return &Ladder{
		ID:           uuid.New().String(),
		Name:         name,
		State:        StateWaiting,
		Entrants:     make(map[string]*Entrant),
		EntrantOrder: make([]string, 0),
		Rounds:       make([]*Round, 0),
		Legs:         legs,
		Seed:         seed,
		CreateTime:   time.Now(),
	}
}

// AddBase enters a base.
func (l *Ladder) AddBase(base string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.State != StateWaiting {
		return ErrAlreadyStarted
	}
	if _, exists := l.Entrants[base]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateBase, base)
	}

	l.Entrants[base] = &Entrant{Base: base}
	l.EntrantOrder = append(l.EntrantOrder, base)
	return nil
}

// RemoveBase withdraws a base before the ladder starts.
func (l *Ladder) RemoveBase(base string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.State != StateWaiting {
		return ErrAlreadyStarted
	}
	if _, exists := l.Entrants[base]; !exists {
		return fmt.Errorf("%w: %q", ErrUnknownEntrant, base)
	}

	delete(l.Entrants, base)
	for i, b := range l.EntrantOrder {
		if b == base {
			l.EntrantOrder = append(l.EntrantOrder[:i], l.EntrantOrder[i+1:]...)
			break
		}
	}
	return nil
}

// GetState returns the current ladder state
func (l *Ladder) GetState() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.State
}

// NumRounds returns the number of rounds the ladder will play once started.
func (l *Ladder) NumRounds() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.schedule)
}

// Start fixes the schedule and moves the ladder into progress.
func (l *Ladder) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.State != StateWaiting {
		return ErrAlreadyStarted
	}
	if len(l.Entrants) < 2 {
		return ErrNotEnoughBases
	}

	l.schedule = roundRobin(l.EntrantOrder, l.Legs)
	now := time.Now()
	l.StartTime = &now
	l.State = StateInProgress
	return nil
}

// roundRobin pairs entrants with the circle method. An odd field gets a
// blank slot, and the entrant drawn against it sits the round out.
func roundRobin(bases []string, legs int) [][][2]string {
	slots := append([]string(nil), bases...)
	if len(slots)%2 == 1 {
		slots = append(slots, "")
	}
	n := len(slots)

	var single [][][2]string
	for r := 0; r < n-1; r++ {
		var round [][2]string
		for i := 0; i < n/2; i++ {
			home, away := slots[i], slots[n-1-i]
			if home == "" || away == "" {
				continue
			}
			if r%2 == 1 {
				home, away = away, home
			}
			round = append(round, [2]string{home, away})
		}
		single = append(single, round)

		// Keep the first slot fixed and rotate the rest by one.
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}

	schedule := make([][][2]string, 0, len(single)*legs)
	for leg := 0; leg < legs; leg++ {
		for _, round := range single {
			cp := make([][2]string, len(round))
			for i, p := range round {
				if leg%2 == 1 {
					p[0], p[1] = p[1], p[0]
				}
				cp[i] = p
			}
			schedule = append(schedule, cp)
		}
	}
	return schedule
}

// CreateRound opens the next scheduled round. It returns nil once the
// schedule is exhausted.
func (l *Ladder) CreateRound() *Round {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.State != StateInProgress || l.CurrentRound >= len(l.schedule) {
		return nil
	}

	matches := l.schedule[l.CurrentRound]
	l.CurrentRound++
	round := &Round{Number: l.CurrentRound, Pairings: make([]*Pairing, 0, len(matches))}
	for _, m := range matches {
		round.Pairings = append(round.Pairings, &Pairing{
			Home: m[0],
			Away: m[1],
			Seed: l.Seed + int64(l.matches),
		})
		l.matches++
	}
	l.Rounds = append(l.Rounds, round)
	return round
}

// RecordMatchResult scores a pairing. An empty winner is a draw.
func (l *Ladder) RecordMatchResult(roundNum int, home, away, winner string, turns int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if roundNum <= 0 || roundNum > len(l.Rounds) {
		return ErrInvalidRound
	}
	if winner != "" && winner != home && winner != away {
		return fmt.Errorf("%w: %q did not play", ErrUnknownEntrant, winner)
	}

	round := l.Rounds[roundNum-1]
	for _, p := range round.Pairings {
		if p.Home != home || p.Away != away || p.Played {
			continue
		}
		p.Winner = winner
		p.Turns = turns
		p.Played = true

		h, a := l.Entrants[home], l.Entrants[away]
		switch winner {
		case home:
			h.Wins++
			h.Points += WinPoints
			a.Losses++
		case away:
			a.Wins++
			a.Points += WinPoints
			h.Losses++
		default:
			h.Draws++
			h.Points += DrawPoints
			a.Draws++
			a.Points += DrawPoints
		}

		round.Finished = true
		for _, other := range round.Pairings {
			if !other.Played {
				round.Finished = false
				break
			}
		}
		if round.Finished && l.CurrentRound == len(l.schedule) {
			now := time.Now()
			l.EndTime = &now
			l.State = StateFinished
		}
		return nil
	}

	return ErrPairingNotFound
}

// Standings returns the entrants ordered by points, then wins, then entry
// order.
func (l *Ladder) Standings() []EntrantSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.standings()
}

func (l *Ladder) standings() []EntrantSnapshot {
	out := make([]EntrantSnapshot, 0, len(l.EntrantOrder))
	for _, base := range l.EntrantOrder {
		e := l.Entrants[base]
		out = append(out, EntrantSnapshot{
			Base:   e.Base,
			Points: e.Points,
			Wins:   e.Wins,
			Losses: e.Losses,
			Draws:  e.Draws,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Wins > out[j].Wins
	})
	return out
}

// Snapshot returns a consistent copy of the ladder state.
func (l *Ladder) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rounds := make([]RoundSnapshot, 0, len(l.Rounds))
	for _, r := range l.Rounds {
		pairings := make([]PairingSnapshot, 0, len(r.Pairings))
		for _, p := range r.Pairings {
			pairings = append(pairings, PairingSnapshot{
				Home:   p.Home,
				Away:   p.Away,
				Seed:   p.Seed,
				Winner: p.Winner,
				Turns:  p.Turns,
				Played: p.Played,
			})
		}
		rounds = append(rounds, RoundSnapshot{
			Number:   r.Number,
			Finished: r.Finished,
			Pairings: pairings,
		})
	}

	return Snapshot{
		ID:           l.ID,
		Name:         l.Name,
		State:        l.State,
		Standings:    l.standings(),
		Rounds:       rounds,
		CurrentRound: l.CurrentRound,
		NumRounds:    len(l.schedule),
		CreateTime:   l.CreateTime,
		StartTime:    cloneTime(l.StartTime),
		EndTime:      cloneTime(l.EndTime),
	}
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}

// Manager manages ladders
type Manager struct {
	ladders map[string]*Ladder
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewManager creates a new ladder manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		ladders: make(map[string]*Ladder),
		logger:  logger,
	}
}

// CreateLadder creates a new ladder
func (m *Manager) CreateLadder(name string, legs int, seed int64) *Ladder {
	m.mu.Lock()
	defer m.mu.Unlock()

	ladder := NewLadder(name, legs, seed)
	m.ladders[ladder.ID] = ladder

	m.logger.Info("ladder created",
		zap.String("ladder_id", ladder.ID),
		zap.String("name", name),
		zap.Int("legs", ladder.Legs),
	)
	return ladder
}

// GetLadder retrieves a ladder by ID
func (m *Manager) GetLadder(id string) (*Ladder, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ladder, ok := m.ladders[id]
	return ladder, ok
}

// RemoveLadder removes a ladder
func (m *Manager) RemoveLadder(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.ladders, id)
	m.logger.Info("ladder removed", zap.String("ladder_id", id))
}

// GetActiveLadderCount returns the count of ladders not yet finished
func (m *Manager) GetActiveLadderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, ladder := range m.ladders {
		if ladder.GetState() != StateFinished {
			count++
		}
	}
	return count
}
