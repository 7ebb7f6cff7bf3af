package game

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/game/resource"
)

// Zone identifies the in-play zone holding a unit stack.
type Zone string

const (
	ZoneAlert   Zone = "alert"
	ZoneReserve Zone = "reserve"
)

// stackRef locates a unit stack in play.
type stackRef struct {
	player int
	zone   Zone
	index  int
}

func (s *GameState) logf(format string, args ...any) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
}

func (s *GameState) newInstance(defID string, faceUp bool) CardInstance {
	c := CardInstance{InstanceID: s.NextInstanceID, DefID: defID, FaceUp: faceUp}
	s.NextInstanceID++
	return c
}

// shuffle permutes cards in place. Each shuffle draws from its own source
// derived from the game seed, so replaying the same actions reproduces the
// same order.
func (s *GameState) shuffle(cards []CardInstance) {
	rng := rand.New(rand.NewSource(s.Seed + int64(s.Shuffles)))
	s.Shuffles++
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// refillDeck moves the discard pile into an empty deck and shuffles it. It
// reports whether the deck has any cards afterwards.
func (s *GameState) refillDeck(player int) bool {
	p := s.Players[player]
	if len(p.Deck) > 0 {
		return true
	}
	if len(p.Discard) == 0 {
		return false
	}
	p.Deck = p.Discard
	p.Discard = nil
	for i := range p.Deck {
		p.Deck[i].FaceUp = false
	}
	s.shuffle(p.Deck)
	s.logf("%s shuffles their discard pile into their deck.", p.Name)
	return true
}

// takeTop removes and returns the top card of a player's deck.
func (s *GameState) takeTop(player int) (CardInstance, bool) {
	if !s.refillDeck(player) {
		return CardInstance{}, false
	}
	p := s.Players[player]
	c := p.Deck[0]
	p.Deck = p.Deck[1:]
	return c, true
}

// draw moves up to n cards from deck to hand and returns how many were drawn.
func (s *GameState) draw(player, n int) int {
	p := s.Players[player]
	drawn := 0
	for ; drawn < n; drawn++ {
		c, ok := s.takeTop(player)
		if !ok {
			break
		}
		p.Hand = append(p.Hand, c)
	}
	return drawn
}

func (p *PlayerState) zone(z Zone) *[]UnitStack {
	if z == ZoneAlert {
		return &p.Zones.Alert
	}
	return &p.Zones.Reserve
}

// findStack locates the stack containing instanceID in either player's
// alert or reserve zone.
func (s *GameState) findStack(instanceID int) (stackRef, bool) {
	for pi, p := range s.Players {
		for _, z := range []Zone{ZoneAlert, ZoneReserve} {
			for i, st := range *p.zone(z) {
				if st.Contains(instanceID) {
					return stackRef{player: pi, zone: z, index: i}, true
				}
			}
		}
	}
	return stackRef{}, false
}

func (s *GameState) stack(ref stackRef) *UnitStack {
	return &(*s.Players[ref.player].zone(ref.zone))[ref.index]
}

// findResourceStack locates the resource stack whose top card is instanceID.
func (s *GameState) findResourceStack(instanceID int) (player, index int, ok bool) {
	for pi, p := range s.Players {
		for i, rs := range p.Zones.ResourceStacks {
			if rs.TopCard.InstanceID == instanceID {
				return pi, i, true
			}
		}
	}
	return 0, 0, false
}

// inPlay reports whether instanceID is a unit, mission or resource top card
// on the board.
func (s *GameState) inPlay(instanceID int) bool {
	if _, ok := s.findStack(instanceID); ok {
		return true
	}
	_, _, ok := s.findResourceStack(instanceID)
	return ok
}

// removeStack takes a stack out of its zone.
func (s *GameState) removeStack(ref stackRef) UnitStack {
	z := s.Players[ref.player].zone(ref.zone)
	st := (*z)[ref.index]
	*z = append((*z)[:ref.index:ref.index], (*z)[ref.index+1:]...)
	return st
}

// commit moves the stack holding instanceID from alert to reserve.
func (s *GameState) commit(instanceID int) bool {
	ref, ok := s.findStack(instanceID)
	if !ok || ref.zone != ZoneAlert {
		return false
	}
	st := s.removeStack(ref)
	p := s.Players[ref.player]
	p.Zones.Reserve = append(p.Zones.Reserve, st)
	return true
}

// defeat removes the stack holding instanceID from play and sends every card
// in it to its owner's discard pile.
func (s *GameState) defeat(instanceID int) bool {
	ref, ok := s.findStack(instanceID)
	if !ok {
		return false
	}
	st := s.removeStack(ref)
	p := s.Players[ref.player]
	for _, c := range st.Cards {
		s.dropEffects(c.InstanceID)
		p.Discard = append(p.Discard, c)
	}
	return true
}

// readyReserve moves every face-up reserve stack of a player to alert.
func (s *GameState) readyReserve(player int) int {
	p := s.Players[player]
	moved := 0
	kept := p.Zones.Reserve[:0:0]
	for _, st := range p.Zones.Reserve {
		if st.Top().FaceUp {
			st.Exhausted = false
			p.Zones.Alert = append(p.Zones.Alert, st)
			moved++
			continue
		}
		kept = append(kept, st)
	}
	p.Zones.Reserve = kept
	return moved
}

// overlayTarget finds a stack of the player whose top unit shares the title
// of a singular unit, in alert first and then reserve.
func (e *Engine) overlayTarget(s *GameState, player int, def *cards.CardDef) (stackRef, bool, error) {
	if !def.Type.IsUnit() || !def.IsSingular() {
		return stackRef{}, false, nil
	}
	title := strings.TrimSpace(def.Title)
	p := s.Players[player]
	for _, z := range []Zone{ZoneAlert, ZoneReserve} {
		for i, st := range *p.zone(z) {
			top, err := e.registry.Card(st.Top().DefID)
			if err != nil {
				return stackRef{}, false, err
			}
			if top.Type.IsUnit() && strings.TrimSpace(top.Title) == title {
				return stackRef{player: player, zone: z, index: i}, true, nil
			}
		}
	}
	return stackRef{}, false, nil
}

// stackResource returns the resource type produced by a resource stack.
func (e *Engine) stackResource(rs ResourceStack) (resource.Type, error) {
	if e.registry.IsBase(rs.TopCard.DefID) {
		b, err := e.registry.Base(rs.TopCard.DefID)
		if err != nil {
			return "", err
		}
		return b.Resource, nil
	}
	c, err := e.registry.Card(rs.TopCard.DefID)
	if err != nil {
		return "", err
	}
	return c.Resource, nil
}

// sources describes a player's resource stacks for payment planning.
func (e *Engine) sources(s *GameState, player int) ([]resource.Source, error) {
	stacks := s.Players[player].Zones.ResourceStacks
	out := make([]resource.Source, len(stacks))
	for i, rs := range stacks {
		t, err := e.stackResource(rs)
		if err != nil {
			return nil, err
		}
		out[i] = resource.Source{Type: t, Quantity: rs.Quantity(), Exhausted: rs.Exhausted}
	}
	return out, nil
}

func (e *Engine) canAfford(s *GameState, player int, cost resource.Cost) (bool, error) {
	srcs, err := e.sources(s, player)
	if err != nil {
		return false, err
	}
	return resource.CanAfford(cost, srcs), nil
}

// pay exhausts whole resource stacks to cover cost.
func (e *Engine) pay(s *GameState, player int, cost resource.Cost) error {
	if cost.IsFree() {
		return nil
	}
	srcs, err := e.sources(s, player)
	if err != nil {
		return err
	}
	res := resource.CalculatePayment(cost, srcs)
	if !res.Success {
		return illegal("cannot pay %s: %s", cost, res.Reason)
	}
	p := s.Players[player]
	for _, i := range res.Plan.Exhaust {
		p.Zones.ResourceStacks[i].Exhausted = true
	}
	return nil
}

// cardAt returns the definition of the card at a hand index.
func (e *Engine) cardAt(s *GameState, player, handIndex int) (*cards.CardDef, error) {
	p := s.Players[player]
	if handIndex < 0 || handIndex >= len(p.Hand) {
		return nil, illegal("hand index %d out of range", handIndex)
	}
	return e.registry.Card(p.Hand[handIndex].DefID)
}

func (p *PlayerState) removeFromHand(handIndex int) CardInstance {
	c := p.Hand[handIndex]
	p.Hand = append(p.Hand[:handIndex:handIndex], p.Hand[handIndex+1:]...)
	return c
}

// unitDef returns the definition of a stack's top card.
func (e *Engine) unitDef(st UnitStack) (*cards.CardDef, error) {
	return e.registry.Card(st.Top().DefID)
}

// power returns the effective power of a stack: its top card's printed power
// plus every live ledger entry on any card of the stack.
func (e *Engine) power(s *GameState, st UnitStack) (int, error) {
	def, err := e.unitDef(st)
	if err != nil {
		return 0, err
	}
	total := def.Power
	for _, fx := range s.Effects {
		if st.Contains(fx.TargetInstanceID) {
			total += fx.PowerDelta
		}
	}
	return total, nil
}

// powerOf returns the effective power of the stack holding instanceID.
func (e *Engine) powerOf(s *GameState, instanceID int) (int, error) {
	ref, ok := s.findStack(instanceID)
	if !ok {
		return 0, fmt.Errorf("instance %d not in play", instanceID)
	}
	return e.power(s, *s.stack(ref))
}

func (e *Engine) cardName(defID string) string {
	if c, err := e.registry.Card(defID); err == nil {
		return c.Name()
	}
	if b, err := e.registry.Base(defID); err == nil {
		return b.Title
	}
	return defID
}

// Locate returns the stack holding instanceID together with its controller
// and zone.
func (s *GameState) Locate(instanceID int) (UnitStack, int, Zone, bool) {
	ref, ok := s.findStack(instanceID)
	if !ok {
		return UnitStack{}, 0, "", false
	}
	return *s.stack(ref), ref.player, ref.zone, true
}

// Power returns the effective power of the unit holding instanceID.
func (e *Engine) Power(s *GameState, instanceID int) (int, error) {
	return e.powerOf(s, instanceID)
}
