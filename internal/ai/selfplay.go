package ai

import (
	"fmt"
	"math/rand"

	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/deck"
	"github.com/caprica/fleet-server/internal/game"
	"github.com/caprica/fleet-server/internal/game/rules"
)

// MatchResult summarises a computer-vs-computer game.
type MatchResult struct {
	Seed      int64
	Bases     [2]string
	Winner    *int
	Turns     int
	Actions   int
	Influence [2]int
	Final     *game.GameState
}

// PlayMatch builds two decks from seed and lets the computer play both seats
// for at most maxActions actions. A game still running at the limit is
// returned with a nil Winner.
func PlayMatch(e *game.Engine, seed int64, maxActions int) (MatchResult, error) {
	return playMatch(e, seed, maxActions, func(reg *cards.Registry, _ int, rng *rand.Rand) (deck.Submission, error) {
		return BuildDeck(reg, rng)
	})
}

// PlayMatchWithBases is PlayMatch with each seat's base fixed.
func PlayMatchWithBases(e *game.Engine, seed int64, bases [2]string, maxActions int) (MatchResult, error) {
	var defs [2]*cards.BaseCardDef
	for i, id := range bases {
		b, err := e.Registry().Base(id)
		if err != nil {
			return MatchResult{}, err
		}
		defs[i] = b
	}
	return playMatch(e, seed, maxActions, func(reg *cards.Registry, seat int, rng *rand.Rand) (deck.Submission, error) {
		return BuildDeckForBase(reg, defs[seat], rng)
	})
}

type deckSource func(reg *cards.Registry, seat int, rng *rand.Rand) (deck.Submission, error)

func playMatch(e *game.Engine, seed int64, maxActions int, build deckSource) (MatchResult, error) {
	rng := rand.New(rand.NewSource(seed))
	cfg := game.GameConfig{Seed: seed, FirstPlayer: rng.Intn(2)}
	for i := range cfg.Players {
		sub, err := build(e.Registry(), i, rng)
		if err != nil {
			return MatchResult{}, fmt.Errorf("seat %d deck: %w", i, err)
		}
		cfg.Players[i] = game.PlayerSetup{
			Name:        fmt.Sprintf("Computer %d", i+1),
			BaseID:      sub.BaseID,
			DeckCardIDs: sub.DeckCardIDs,
		}
	}

	s, err := e.CreateGame(cfg)
	if err != nil {
		return MatchResult{}, err
	}

	res := MatchResult{Seed: seed, Bases: [2]string{cfg.Players[0].BaseID, cfg.Players[1].BaseID}}
	for res.Actions < maxActions && s.Phase != rules.PhaseGameOver {
		acted := false
		for _, player := range []int{s.ActivePlayerIndex, game.Opponent(s.ActivePlayerIndex)} {
			valid, err := e.ValidActions(s, player)
			if err != nil {
				return res, err
			}
			if len(valid) == 0 {
				continue
			}
			a, err := Decide(e, s, player, valid)
			if err != nil {
				return res, err
			}
			next, err := e.ApplyAction(s, player, a)
			if err != nil {
				return res, fmt.Errorf("action %d (%s by %d): %w", res.Actions, a.Type, player, err)
			}
			s = next
			res.Actions++
			acted = true
			break
		}
		if !acted {
			return res, fmt.Errorf("no player can act in %s", s.Phase)
		}
	}

	res.Winner = s.Winner
	res.Turns = s.Turn
	res.Final = s
	for i, p := range s.Players {
		res.Influence[i] = p.Influence
	}
	return res, nil
}
