// Package room drives games between two seats: deck submission, turn
// serialization, the computer opponent's turn loop and match bookkeeping.
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/caprica/fleet-server/internal/deck"
	"github.com/caprica/fleet-server/internal/game"
)

var (
	ErrNotFound       = errors.New("room not found")
	ErrSeatTaken      = errors.New("seat already taken")
	ErrBadPassword    = errors.New("wrong room password")
	ErrNotSeated      = errors.New("not seated in this room")
	ErrNotStarted     = errors.New("game has not started")
	ErrAlreadyStarted = errors.New("game already started")
	ErrInvalidDeck    = errors.New("invalid deck")
	// ErrAILoopExceeded is recoverable: the room keeps its current state and
	// reports it as a warning.
	ErrAILoopExceeded = errors.New("computer turn limit reached")
)

// State is the lifecycle of a room.
type State int

const (
	StateWaiting State = iota
	StatePlaying
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StatePlaying:
		return "PLAYING"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Options configure a new room. The creator always takes seat 0.
type Options struct {
	Name     string
	VsAI     bool
	Password string
	// Seed drives shuffles and the computer's deck; zero picks one from the clock.
	Seed int64
}

type seat struct {
	name     string
	occupied bool
	ai       bool
	deck     *deck.Submission
}

// Room is one game table.
type Room struct {
	ID string

	mu           sync.Mutex
	name         string
	passwordHash []byte
	seats        [2]seat
	aiSeat       int
	seed         int64
	state        *game.GameState
	status       State
	createTime   time.Time
	startTime    *time.Time
	endTime      *time.Time
}

// SeatInfo describes a seat without exposing its deck.
type SeatInfo struct {
	Name          string `json:"name"`
	Occupied      bool   `json:"occupied"`
	AI            bool   `json:"ai"`
	DeckSubmitted bool   `json:"deckSubmitted"`
}

// Info is a consistent copy of a room's public details.
type Info struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	State       string      `json:"state"`
	VsAI        bool        `json:"vsAi"`
	HasPassword bool        `json:"hasPassword"`
	Seats       [2]SeatInfo `json:"seats"`
	CreateTime  time.Time   `json:"createTime"`
}

// Snapshot is what one seat is told after every change: its view of the
// game and what it may do next.
type Snapshot struct {
	RoomID       string             `json:"roomId"`
	Seat         int                `json:"seat"`
	View         *game.View         `json:"view"`
	ValidActions []game.ValidAction `json:"validActions"`
	Warning      string             `json:"warning,omitempty"`
}

// Notifier receives snapshots for human seats.
type Notifier interface {
	Publish(roomID string, seat int, snap Snapshot)
}

func (r *Room) info() Info {
	out := Info{
		ID:          r.ID,
		Name:        r.name,
		State:       r.status.String(),
		VsAI:        r.aiSeat >= 0,
		HasPassword: len(r.passwordHash) > 0,
		CreateTime:  r.createTime,
	}
	for i, s := range r.seats {
		out.Seats[i] = SeatInfo{Name: s.name, Occupied: s.occupied, AI: s.ai, DeckSubmitted: s.deck != nil}
	}
	return out
}

func (r *Room) human(seat int) bool {
	return seat >= 0 && seat < len(r.seats) && r.seats[seat].occupied && !r.seats[seat].ai
}
