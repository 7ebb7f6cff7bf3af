package game

import (
	"errors"
	"fmt"

	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/game/rules"
)

var (
	// ErrIllegalAction is returned for actions submitted out of phase, out of
	// turn, or with choices the rules do not allow.
	ErrIllegalAction = errors.New("illegal action")
	// ErrGameOver is returned for any action after the game has ended.
	ErrGameOver = errors.New("game is over")
)

func illegal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalAction, fmt.Sprintf(format, args...))
}

// Engine applies the game rules against a fixed card registry.
type Engine struct {
	registry *cards.Registry
}

// NewEngine creates an engine bound to registry.
func NewEngine(registry *cards.Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry returns the registry the engine was built with.
func (e *Engine) Registry() *cards.Registry {
	return e.registry
}

// PlayerSetup is one seat's submission for a new game.
type PlayerSetup struct {
	Name        string
	BaseID      string
	DeckCardIDs []string
}

// GameConfig describes a new game.
type GameConfig struct {
	Players [2]PlayerSetup
	// Seed drives every shuffle in the game.
	Seed int64
	// FirstPlayer is the index of the player who acts first on turn 1.
	FirstPlayer int
}

// CreateGame builds the initial state: each base becomes its player's first
// resource stack, decks are shuffled and opening hands drawn. The game starts
// in the setup phase waiting for both mulligan decisions.
func (e *Engine) CreateGame(cfg GameConfig) (*GameState, error) {
	if cfg.FirstPlayer != 0 && cfg.FirstPlayer != 1 {
		return nil, fmt.Errorf("first player must be 0 or 1, got %d", cfg.FirstPlayer)
	}

	s := &GameState{
		Phase:             rules.PhaseSetup,
		ReadyStep:         rules.StepNone,
		FirstPlayerIndex:  cfg.FirstPlayer,
		ActivePlayerIndex: cfg.FirstPlayer,
		NextInstanceID:    1,
		Seed:              cfg.Seed,
		Log:               make([]string, 0, 64),
	}

	for i, setup := range cfg.Players {
		base, err := e.registry.Base(setup.BaseID)
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", i, err)
		}

		p := &PlayerState{
			Name:      setup.Name,
			BaseID:    base.ID,
			Influence: base.Influence,
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("Player %d", i+1)
		}

		baseCard := s.newInstance(base.ID, true)
		p.Zones.ResourceStacks = []ResourceStack{{TopCard: baseCard}}

		p.Deck = make([]CardInstance, 0, len(setup.DeckCardIDs))
		for _, id := range setup.DeckCardIDs {
			if _, err := e.registry.Card(id); err != nil {
				return nil, fmt.Errorf("player %d deck: %w", i, err)
			}
			p.Deck = append(p.Deck, s.newInstance(id, false))
		}

		s.Players[i] = p
		s.FleetDefenseLevel += base.Power
	}

	for i, p := range s.Players {
		s.shuffle(p.Deck)
		base, _ := e.registry.Base(p.BaseID)
		s.draw(i, base.HandSize)
	}

	s.logf("Game started: %s (%s) vs %s (%s). Fleet defense level %d.",
		s.Players[0].Name, s.Players[0].BaseID, s.Players[1].Name, s.Players[1].BaseID, s.FleetDefenseLevel)

	return s, nil
}

// ApplyAction applies action on behalf of player and returns the resulting
// state. The input state is never modified. An action naming a card that has
// left play returns the input state and a nil error. Unknown card
// definitions and illegal actions return an error; callers keep the prior
// state in that case.
func (e *Engine) ApplyAction(s *GameState, player int, action Action) (*GameState, error) {
	if s == nil {
		return nil, fmt.Errorf("nil game state")
	}
	if player != 0 && player != 1 {
		return nil, illegal("no such player %d", player)
	}
	if s.Phase == rules.PhaseGameOver {
		return nil, ErrGameOver
	}

	next := s.Clone()
	applied, err := e.apply(next, player, action)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s, nil
	}

	checkVictory(next)
	return next, nil
}

// apply mutates s. It returns false when the action referenced an instance
// that is no longer in play, in which case s must be discarded.
func (e *Engine) apply(s *GameState, player int, a Action) (bool, error) {
	if s.Challenge != nil {
		return e.applyChallengeAction(s, player, a)
	}

	switch s.Phase {
	case rules.PhaseSetup:
		return e.applySetupAction(s, player, a)
	case rules.PhaseReady:
		return e.applyReadyAction(s, player, a)
	case rules.PhaseExecution:
		return e.applyExecutionAction(s, player, a)
	case rules.PhaseCylon:
		return e.applyCylonAction(s, player, a)
	}
	return false, illegal("no actions in phase %s", s.Phase)
}

func (s *GameState) requireActive(player int) error {
	if s.ActivePlayerIndex != player {
		return illegal("it is not %s's turn", s.Players[player].Name)
	}
	return nil
}

// checkVictory ends the game when a player reaches the winning influence, or
// when a player drops to the losing threshold. Winning is checked first, in
// player order.
func checkVictory(s *GameState) {
	if s.Winner != nil {
		return
	}
	for i, p := range s.Players {
		if p.Influence >= WinningInfluence {
			s.endGame(i, fmt.Sprintf("%s reaches %d influence and wins!", p.Name, p.Influence))
			return
		}
	}
	for i, p := range s.Players {
		if p.Influence <= LosingInfluence {
			winner := Opponent(i)
			s.endGame(winner, fmt.Sprintf("%s is out of influence. %s wins!", p.Name, s.Players[winner].Name))
			return
		}
	}
}

func (s *GameState) endGame(winner int, message string) {
	s.Winner = IntPtr(winner)
	s.Phase = rules.PhaseGameOver
	s.ReadyStep = rules.StepNone
	s.Challenge = nil
	s.logf("%s", message)
}

// CheckVictory returns a copy of s with the victory check applied.
func CheckVictory(s *GameState) *GameState {
	next := s.Clone()
	checkVictory(next)
	return next
}
