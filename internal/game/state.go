// Package game implements the rules engine: a pure state machine over
// GameState values. Every exported operation takes a state and returns a new
// one; the input is never modified.
package game

import (
	"github.com/caprica/fleet-server/internal/game/rules"
)

// Influence thresholds checked after every action.
const (
	WinningInfluence = 20
	LosingInfluence  = 0
)

// CardInstance is one physical card. An instance lives in exactly one zone.
type CardInstance struct {
	InstanceID int    `json:"instanceId"`
	DefID      string `json:"defId"`
	FaceUp     bool   `json:"faceUp"`
}

// UnitStack is a personnel, ship or mission in play together with any cards
// overlaid on it. Cards[0] is the top card. A stack is never empty.
type UnitStack struct {
	Cards     []CardInstance `json:"cards"`
	Exhausted bool           `json:"exhausted"`
}

// Top returns the top card of the stack.
func (s UnitStack) Top() CardInstance {
	return s.Cards[0]
}

// Contains reports whether any card of the stack has instanceID.
func (s UnitStack) Contains(instanceID int) bool {
	for _, c := range s.Cards {
		if c.InstanceID == instanceID {
			return true
		}
	}
	return false
}

// ResourceStack is a base or asset with face-down supply cards under it.
type ResourceStack struct {
	TopCard     CardInstance   `json:"topCard"`
	SupplyCards []CardInstance `json:"supplyCards"`
	Exhausted   bool           `json:"exhausted"`
}

// Quantity is the amount the stack produces: the top card plus one per supply card.
func (s ResourceStack) Quantity() int {
	return 1 + len(s.SupplyCards)
}

// PlayerZones holds a player's cards in play.
type PlayerZones struct {
	Alert          []UnitStack     `json:"alert"`
	Reserve        []UnitStack     `json:"reserve"`
	ResourceStacks []ResourceStack `json:"resourceStacks"`
}

// PlayerState is everything one player owns. Deck[0] is the top of the deck.
type PlayerState struct {
	Name      string         `json:"name"`
	BaseID    string         `json:"baseId"`
	Zones     PlayerZones    `json:"zones"`
	Hand      []CardInstance `json:"hand"`
	Deck      []CardInstance `json:"deck"`
	Discard   []CardInstance `json:"discard"`
	Influence int            `json:"influence"`

	HasMulliganed      bool `json:"hasMulliganed"`
	HasPlayedResource  bool `json:"hasPlayedResource"`
	HasResolvedMission bool `json:"hasResolvedMission"`
	ConsecutivePasses  int  `json:"consecutivePasses"`
}

// ChallengeStep is the position within the challenge sub-protocol.
type ChallengeStep int

const (
	ChallengeChooseDefender ChallengeStep = iota + 1
	ChallengeEffects
	ChallengeReveal
	ChallengeResolve
	ChallengeComplete
)

func (s ChallengeStep) String() string {
	switch s {
	case ChallengeChooseDefender:
		return "CHOOSE_DEFENDER"
	case ChallengeEffects:
		return "EFFECTS"
	case ChallengeReveal:
		return "REVEAL"
	case ChallengeResolve:
		return "RESOLVE"
	case ChallengeComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// ChallengeState exists only while a challenge is being resolved. Power
// buffs played during the challenge are kept in the effect ledger with
// ExpiryChallenge.
type ChallengeState struct {
	ChallengerInstanceID int           `json:"challengerInstanceId"`
	ChallengerPlayer     int           `json:"challengerPlayer"`
	DefenderInstanceID   *int          `json:"defenderInstanceId"`
	DefenderPlayer       int           `json:"defenderPlayer"`
	Step                 ChallengeStep `json:"step"`
	ChallengerMystic     *int          `json:"challengerMystic"`
	DefenderMystic       *int          `json:"defenderMystic"`
	ConsecutivePasses    int           `json:"consecutivePasses"`

	// Cylon challenges: the defender is a threat card played by the player
	// seated after the challenger.
	IsCylon     bool `json:"isCylon"`
	ThreatIndex int  `json:"threatIndex"`
}

// CylonThreat is a revealed card attacking the fleet during the cylon phase.
type CylonThreat struct {
	Card  CardInstance `json:"card"`
	Power int          `json:"power"`
	Owner int          `json:"owner"`
}

// Expiry says when a timed effect ends.
type Expiry string

const (
	ExpiryChallenge Expiry = "challenge"
	ExpiryPhase     Expiry = "phase"
)

// TimedEffect is a power modifier on a card instance with an explicit expiry.
type TimedEffect struct {
	TargetInstanceID int    `json:"targetInstanceId"`
	PowerDelta       int    `json:"powerDelta"`
	Expiry           Expiry `json:"expiry"`
	Source           string `json:"source"`
}

// GameState is the aggregate root of a game.
type GameState struct {
	Players           [2]*PlayerState `json:"players"`
	Phase             rules.Phase     `json:"phase"`
	ReadyStep         rules.Step      `json:"readyStep"`
	Turn              int             `json:"turn"`
	FirstPlayerIndex  int             `json:"firstPlayerIndex"`
	ActivePlayerIndex int             `json:"activePlayerIndex"`
	FleetDefenseLevel int             `json:"fleetDefenseLevel"`
	Challenge         *ChallengeState `json:"challenge"`
	CylonThreats      []CylonThreat   `json:"cylonThreats"`
	Effects           []TimedEffect   `json:"effects"`
	Log               []string        `json:"log"`
	Winner            *int            `json:"winner"`

	NextInstanceID int   `json:"nextInstanceId"`
	Seed           int64 `json:"seed"`
	Shuffles       int   `json:"shuffles"`
}

// Clone returns a deep copy of the state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	for i, p := range s.Players {
		out.Players[i] = p.clone()
	}
	if s.Challenge != nil {
		c := *s.Challenge
		c.DefenderInstanceID = cloneIntPtr(s.Challenge.DefenderInstanceID)
		c.ChallengerMystic = cloneIntPtr(s.Challenge.ChallengerMystic)
		c.DefenderMystic = cloneIntPtr(s.Challenge.DefenderMystic)
		out.Challenge = &c
	}
	out.CylonThreats = append([]CylonThreat(nil), s.CylonThreats...)
	out.Effects = append([]TimedEffect(nil), s.Effects...)
	out.Log = append([]string(nil), s.Log...)
	out.Winner = cloneIntPtr(s.Winner)
	return &out
}

func (p *PlayerState) clone() *PlayerState {
	if p == nil {
		return nil
	}
	out := *p
	out.Hand = cloneCards(p.Hand)
	out.Deck = cloneCards(p.Deck)
	out.Discard = cloneCards(p.Discard)
	out.Zones = PlayerZones{
		Alert:          cloneStacks(p.Zones.Alert),
		Reserve:        cloneStacks(p.Zones.Reserve),
		ResourceStacks: make([]ResourceStack, len(p.Zones.ResourceStacks)),
	}
	for i, rs := range p.Zones.ResourceStacks {
		rs.SupplyCards = cloneCards(rs.SupplyCards)
		out.Zones.ResourceStacks[i] = rs
	}
	return &out
}

func cloneCards(cards []CardInstance) []CardInstance {
	if cards == nil {
		return nil
	}
	return append(make([]CardInstance, 0, len(cards)), cards...)
}

func cloneStacks(stacks []UnitStack) []UnitStack {
	if stacks == nil {
		return nil
	}
	out := make([]UnitStack, len(stacks))
	for i, st := range stacks {
		out[i] = UnitStack{Cards: cloneCards(st.Cards), Exhausted: st.Exhausted}
	}
	return out
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// CardCount returns the number of card instances in every zone of the game,
// including revealed cylon threats.
func (s *GameState) CardCount() int {
	total := len(s.CylonThreats)
	for _, p := range s.Players {
		total += len(p.Hand) + len(p.Deck) + len(p.Discard)
		for _, st := range p.Zones.Alert {
			total += len(st.Cards)
		}
		for _, st := range p.Zones.Reserve {
			total += len(st.Cards)
		}
		for _, rs := range p.Zones.ResourceStacks {
			total += rs.Quantity()
		}
	}
	return total
}

// Opponent returns the index of the other player.
func Opponent(player int) int {
	return 1 - player
}
