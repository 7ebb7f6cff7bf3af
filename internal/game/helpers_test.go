package game

import (
	"testing"

	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/game/rules"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := cards.Default()
	require.NoError(t, err)
	return NewEngine(reg)
}

// fullDeck cycles through every card in the registry until it has 60 cards.
func fullDeck(reg *cards.Registry) []string {
	all := reg.Cards()
	deck := make([]string, 0, 60)
	for i := 0; len(deck) < 60; i++ {
		deck = append(deck, all[i%len(all)].ID)
	}
	return deck
}

func testConfig(e *Engine, seed int64) GameConfig {
	return GameConfig{
		Players: [2]PlayerSetup{
			{Name: "Alice", BaseID: "galactica", DeckCardIDs: fullDeck(e.Registry())},
			{Name: "Bob", BaseID: "colonial-one", DeckCardIDs: fullDeck(e.Registry())},
		},
		Seed: seed,
	}
}

func newTestGame(t *testing.T, seed int64) (*Engine, *GameState) {
	t.Helper()
	e := newTestEngine(t)
	s, err := e.CreateGame(testConfig(e, seed))
	require.NoError(t, err)
	return e, s
}

// executionGame returns a game in the execution phase of turn 1 with empty
// hands, Alice to act.
func executionGame(t *testing.T) (*Engine, *GameState) {
	t.Helper()
	e, s := newTestGame(t, 7)
	s.Phase = rules.PhaseExecution
	s.ReadyStep = rules.StepNone
	s.Turn = 1
	s.FirstPlayerIndex = 0
	s.ActivePlayerIndex = 0
	for _, p := range s.Players {
		p.HasMulliganed = true
		p.Discard = append(p.Discard, p.Hand...)
		p.Hand = nil
	}
	return e, s
}

func addUnit(s *GameState, player int, zone Zone, defID string) int {
	c := s.newInstance(defID, true)
	z := s.Players[player].zone(zone)
	*z = append(*z, UnitStack{Cards: []CardInstance{c}})
	return c.InstanceID
}

func addToHand(s *GameState, player int, defID string) int {
	p := s.Players[player]
	p.Hand = append(p.Hand, s.newInstance(defID, false))
	return len(p.Hand) - 1
}

func putOnDeck(s *GameState, player int, defID string) {
	p := s.Players[player]
	p.Deck = append([]CardInstance{s.newInstance(defID, false)}, p.Deck...)
}

func addSupply(s *GameState, player, stack, n int) {
	rs := &s.Players[player].Zones.ResourceStacks[stack]
	for i := 0; i < n; i++ {
		rs.SupplyCards = append(rs.SupplyCards, s.newInstance("deckhand", false))
	}
}

func apply(t *testing.T, e *Engine, s *GameState, player int, a Action) *GameState {
	t.Helper()
	next, err := e.ApplyAction(s, player, a)
	require.NoError(t, err)
	return next
}

func zoneOf(s *GameState, instanceID int) (int, Zone, bool) {
	ref, ok := s.findStack(instanceID)
	return ref.player, ref.zone, ok
}

func discardHas(p *PlayerState, instanceID int) bool {
	for _, c := range p.Discard {
		if c.InstanceID == instanceID {
			return true
		}
	}
	return false
}
