package game

import (
	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/game/rules"
)

// cylonVictoryInfluence is gained for defeating a cylon threat.
const cylonVictoryInfluence = 2

// eligibleChallenger reports whether instanceID is a ready alert unit of
// player. The bool is false when the instance has left play.
func (e *Engine) eligibleChallenger(s *GameState, player int, instanceID int) (bool, error) {
	ref, ok := s.findStack(instanceID)
	if !ok {
		return false, nil
	}
	if ref.player != player || ref.zone != ZoneAlert {
		return false, illegal("instance %d is not an alert unit of %s", instanceID, s.Players[player].Name)
	}
	st := s.stack(ref)
	def, err := e.unitDef(*st)
	if err != nil {
		return false, err
	}
	if !def.Type.IsUnit() || st.Exhausted {
		return false, illegal("%s cannot challenge", def.Name())
	}
	return true, nil
}

func (e *Engine) startChallenge(s *GameState, player int, a Action) (bool, error) {
	if a.OpponentIndex != Opponent(player) {
		return false, illegal("cannot challenge player %d", a.OpponentIndex)
	}
	ok, err := e.eligibleChallenger(s, player, a.InstanceID)
	if err != nil || !ok {
		return ok, err
	}
	ref, _ := s.findStack(a.InstanceID)
	top := s.stack(ref).Top()

	s.resetPasses()
	s.Challenge = &ChallengeState{
		ChallengerInstanceID: top.InstanceID,
		ChallengerPlayer:     player,
		DefenderPlayer:       a.OpponentIndex,
		Step:                 ChallengeChooseDefender,
	}
	s.ActivePlayerIndex = a.OpponentIndex
	s.logf("%s challenges %s with %s.", s.Players[player].Name, s.Players[a.OpponentIndex].Name, e.cardName(top.DefID))
	return true, nil
}

// defenders lists the alert units of the defending player that may block:
// ready units of the same type as the challenger.
func (e *Engine) defenders(s *GameState) ([]int, error) {
	c := s.Challenge
	challenger, err := e.challengerDef(s)
	if err != nil || challenger == nil {
		return nil, err
	}
	var out []int
	for _, st := range s.Players[c.DefenderPlayer].Zones.Alert {
		if st.Exhausted {
			continue
		}
		def, err := e.unitDef(st)
		if err != nil {
			return nil, err
		}
		if def.Type == challenger.Type {
			out = append(out, st.Top().InstanceID)
		}
	}
	return out, nil
}

func (e *Engine) challengerDef(s *GameState) (*cards.CardDef, error) {
	ref, ok := s.findStack(s.Challenge.ChallengerInstanceID)
	if !ok {
		return nil, nil
	}
	return e.unitDef(*s.stack(ref))
}

func (e *Engine) applyChallengeAction(s *GameState, player int, a Action) (bool, error) {
	c := s.Challenge
	if err := s.requireActive(player); err != nil {
		return false, err
	}

	switch c.Step {
	case ChallengeChooseDefender:
		if a.Type != ActionDefend {
			return false, illegal("%s is not allowed while choosing a defender", a.Type)
		}
		return e.defend(s, player, a)

	case ChallengeEffects:
		var (
			applied bool
			err     error
		)
		switch a.Type {
		case ActionChallengePass:
			return true, e.passChallenge(s, player)
		case ActionPlayEventInChallenge:
			def, derr := e.cardAt(s, player, a.HandIndex)
			if derr != nil {
				return false, derr
			}
			applied, err = e.playEvent(s, player, a, def)
		case ActionPlayAbility:
			applied, err = e.activateAbility(s, player, a)
		default:
			return false, illegal("%s is not allowed during challenge effects", a.Type)
		}
		if err != nil || !applied {
			return applied, err
		}
		c.ConsecutivePasses = 0
		s.ActivePlayerIndex = c.otherSide(player)
		return true, nil
	}
	return false, illegal("challenge is resolving")
}

func (c *ChallengeState) otherSide(player int) int {
	if player == c.ChallengerPlayer {
		return c.DefenderPlayer
	}
	return c.ChallengerPlayer
}

func (e *Engine) defend(s *GameState, player int, a Action) (bool, error) {
	c := s.Challenge
	p := s.Players[player]

	if a.DefenderInstanceID != nil {
		if _, ok := s.findStack(*a.DefenderInstanceID); !ok {
			return false, nil
		}
		ids, err := e.defenders(s)
		if err != nil {
			return false, err
		}
		ref, _ := s.findStack(*a.DefenderInstanceID)
		top := s.stack(ref).Top()
		found := false
		for _, id := range ids {
			if id == top.InstanceID {
				found = true
				break
			}
		}
		if !found {
			return false, illegal("instance %d cannot defend", *a.DefenderInstanceID)
		}
		c.DefenderInstanceID = IntPtr(top.InstanceID)
		s.logf("%s defends with %s.", p.Name, e.cardName(top.DefID))
	} else {
		s.logf("%s does not defend.", p.Name)
	}

	c.Step = ChallengeEffects
	c.ConsecutivePasses = 0
	s.ActivePlayerIndex = c.ChallengerPlayer
	return true, nil
}

func (e *Engine) passChallenge(s *GameState, player int) error {
	c := s.Challenge
	c.ConsecutivePasses++
	if c.ConsecutivePasses >= 2 {
		return e.resolveChallenge(s)
	}
	s.ActivePlayerIndex = c.otherSide(player)
	return nil
}

// revealMystic reveals the top card of a player's deck into their discard
// pile and returns its mystic value. An empty deck and discard reveals 0.
func (e *Engine) revealMystic(s *GameState, player int) (*int, error) {
	p := s.Players[player]
	card, ok := s.takeTop(player)
	if !ok {
		s.logf("%s has no cards to reveal. Mystic value 0.", p.Name)
		return IntPtr(0), nil
	}
	def, err := e.registry.Card(card.DefID)
	if err != nil {
		return nil, err
	}
	card.FaceUp = true
	p.Discard = append(p.Discard, card)
	s.logf("%s reveals %s for mystic value %d.", p.Name, def.Name(), def.MysticValue)
	return IntPtr(def.MysticValue), nil
}

// resolveChallenge reveals mystic values and settles the challenge.
func (e *Engine) resolveChallenge(s *GameState) error {
	c := s.Challenge
	c.Step = ChallengeReveal

	challengerPower, err := e.powerOf(s, c.ChallengerInstanceID)
	if err != nil {
		// The challenger has left play; the challenge fizzles.
		return e.endChallenge(s)
	}

	if c.ChallengerMystic, err = e.revealMystic(s, c.ChallengerPlayer); err != nil {
		return err
	}
	attack := challengerPower + *c.ChallengerMystic

	if c.IsCylon {
		if c.DefenderMystic, err = e.revealMystic(s, c.DefenderPlayer); err != nil {
			return err
		}
		c.Step = ChallengeResolve
		return e.resolveCylonChallenge(s, attack)
	}

	challenger := s.Players[c.ChallengerPlayer]
	defender := s.Players[c.DefenderPlayer]
	name := e.unitName(s, c.ChallengerInstanceID)

	defenderPower := 0
	defended := false
	if c.DefenderInstanceID != nil {
		defenderPower, err = e.powerOf(s, *c.DefenderInstanceID)
		defended = err == nil
	}

	if !defended {
		c.Step = ChallengeResolve
		damage := attack
		if damage < 0 {
			damage = 0
		}
		defender.Influence -= damage
		s.commit(c.ChallengerInstanceID)
		s.logf("%s is undefended. %s loses %d influence.", name, defender.Name, damage)
		return e.endChallenge(s)
	}

	if c.DefenderMystic, err = e.revealMystic(s, c.DefenderPlayer); err != nil {
		return err
	}
	defense := defenderPower + *c.DefenderMystic
	c.Step = ChallengeResolve

	defenderName := e.unitName(s, *c.DefenderInstanceID)
	if attack >= defense {
		s.commit(c.ChallengerInstanceID)
		s.defeat(*c.DefenderInstanceID)
		s.logf("%s (%d) defeats %s (%d). %s wins the challenge.", name, attack, defenderName, defense, challenger.Name)
	} else {
		s.commit(*c.DefenderInstanceID)
		s.defeat(c.ChallengerInstanceID)
		s.logf("%s (%d) defeats %s (%d). %s wins the challenge.", defenderName, defense, name, attack, defender.Name)
	}
	return e.endChallenge(s)
}

// endChallenge clears the challenge and its effects and passes the turn to
// the player after the challenger.
func (e *Engine) endChallenge(s *GameState) error {
	c := s.Challenge
	c.Step = ChallengeComplete
	s.Challenge = nil
	s.expireEffects(ExpiryChallenge)
	s.resetPasses()
	s.ActivePlayerIndex = Opponent(c.ChallengerPlayer)

	if c.IsCylon && s.Phase == rules.PhaseCylon && len(s.CylonThreats) == 0 {
		return e.endCylonPhase(s)
	}
	return nil
}

func (e *Engine) unitName(s *GameState, instanceID int) string {
	ref, ok := s.findStack(instanceID)
	if !ok {
		return "a departed unit"
	}
	return e.cardName(s.stack(ref).Top().DefID)
}
