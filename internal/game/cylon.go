package game

import (
	"github.com/caprica/fleet-server/internal/game/rules"
)

// ThreatLevel returns the total cylon threat of every face-up top card in
// both players' alert and reserve zones.
func (e *Engine) ThreatLevel(s *GameState) (int, error) {
	total := 0
	for _, p := range s.Players {
		for _, z := range []Zone{ZoneAlert, ZoneReserve} {
			for _, st := range *p.zone(z) {
				top := st.Top()
				if !top.FaceUp {
					continue
				}
				def, err := e.registry.Card(top.DefID)
				if err != nil {
					return 0, err
				}
				total += def.CylonThreat
			}
		}
	}
	return total, nil
}

// startCylonPhase compares the threat level to the fleet defense level and
// reveals one threat per player when the fleet is attacked.
func (e *Engine) startCylonPhase(s *GameState) error {
	threat, err := e.ThreatLevel(s)
	if err != nil {
		return err
	}
	if threat <= s.FleetDefenseLevel {
		s.logf("Cylon threat %d against fleet defense %d.", threat, s.FleetDefenseLevel)
		s.logf("No Cylon attack this turn.")
		return e.advance(s)
	}

	s.logf("Cylon threat %d exceeds fleet defense %d. The Cylons attack!", threat, s.FleetDefenseLevel)
	for i := 0; i < len(s.Players); i++ {
		owner := (s.FirstPlayerIndex + i) % len(s.Players)
		p := s.Players[owner]
		card, ok := s.takeTop(owner)
		if !ok {
			s.logf("%s has no cards to reveal as a threat.", p.Name)
			continue
		}
		card.FaceUp = true
		def, err := e.registry.Card(card.DefID)
		if err != nil {
			return err
		}
		power, name := def.CylonThreat, def.Name()
		if power == 0 {
			p.Discard = append(p.Discard, card)
			s.logf("%s reveals %s: no threat.", p.Name, name)
			continue
		}
		s.CylonThreats = append(s.CylonThreats, CylonThreat{Card: card, Power: power, Owner: owner})
		s.logf("%s reveals %s: threat %d.", p.Name, name, power)
	}

	s.resetPasses()
	if len(s.CylonThreats) == 0 {
		return e.endCylonPhase(s)
	}
	return nil
}

func (e *Engine) applyCylonAction(s *GameState, player int, a Action) (bool, error) {
	if err := s.requireActive(player); err != nil {
		return false, err
	}
	p := s.Players[player]

	switch a.Type {
	case ActionPassCylon:
		p.Influence--
		p.ConsecutivePasses++
		s.logf("%s does not engage the Cylons and loses 1 influence.", p.Name)
		if s.Players[0].ConsecutivePasses > 0 && s.Players[1].ConsecutivePasses > 0 {
			return true, e.endCylonPhase(s)
		}
		s.ActivePlayerIndex = Opponent(player)
		return true, nil

	case ActionChallengeCylon:
		if a.ThreatIndex < 0 || a.ThreatIndex >= len(s.CylonThreats) {
			return false, illegal("threat %d does not exist", a.ThreatIndex)
		}
		ok, err := e.eligibleChallenger(s, player, a.InstanceID)
		if err != nil || !ok {
			return ok, err
		}
		ref, _ := s.findStack(a.InstanceID)
		top := s.stack(ref).Top()
		threat := s.CylonThreats[a.ThreatIndex]

		s.resetPasses()
		s.Challenge = &ChallengeState{
			ChallengerInstanceID: top.InstanceID,
			ChallengerPlayer:     player,
			DefenderPlayer:       (player + 1) % len(s.Players),
			Step:                 ChallengeEffects,
			IsCylon:              true,
			ThreatIndex:          a.ThreatIndex,
		}
		s.logf("%s challenges the Cylon %s (threat %d) with %s.",
			p.Name, e.cardName(threat.Card.DefID), threat.Power, e.cardName(top.DefID))
		return true, nil
	}
	return false, illegal("%s is not allowed in the cylon phase", a.Type)
}

// resolveCylonChallenge settles a challenge against a threat. Ties go to the
// challenger.
func (e *Engine) resolveCylonChallenge(s *GameState, attack int) error {
	c := s.Challenge
	p := s.Players[c.ChallengerPlayer]
	name := e.unitName(s, c.ChallengerInstanceID)

	if c.ThreatIndex < 0 || c.ThreatIndex >= len(s.CylonThreats) {
		return e.endChallenge(s)
	}
	threat := s.CylonThreats[c.ThreatIndex]
	defense := threat.Power + *c.DefenderMystic
	threatName := e.cardName(threat.Card.DefID)

	if attack >= defense {
		s.CylonThreats = append(s.CylonThreats[:c.ThreatIndex:c.ThreatIndex], s.CylonThreats[c.ThreatIndex+1:]...)
		owner := s.Players[threat.Owner]
		owner.Discard = append(owner.Discard, threat.Card)
		p.Influence += cylonVictoryInfluence
		s.commit(c.ChallengerInstanceID)
		s.logf("%s (%d) destroys the Cylon %s (%d). %s gains %d influence.",
			name, attack, threatName, defense, p.Name, cylonVictoryInfluence)
	} else {
		s.defeat(c.ChallengerInstanceID)
		s.logf("The Cylon %s (%d) defeats %s (%d).", threatName, defense, name, attack)
	}
	return e.endChallenge(s)
}

// endCylonPhase discards the remaining threats and starts the next turn.
func (e *Engine) endCylonPhase(s *GameState) error {
	for _, t := range s.CylonThreats {
		owner := s.Players[t.Owner]
		owner.Discard = append(owner.Discard, t.Card)
	}
	s.CylonThreats = nil
	s.logf("The Cylon phase ends.")
	if s.Phase == rules.PhaseCylon {
		return e.advance(s)
	}
	return nil
}
