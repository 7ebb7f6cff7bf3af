package game

import (
	"github.com/caprica/fleet-server/internal/cards"
)

// addEffect records a power modifier. Modifiers created during a challenge
// end with it; the rest last until the end of the phase.
func (s *GameState) addEffect(target, delta int, source string) {
	expiry := ExpiryPhase
	if s.Challenge != nil {
		expiry = ExpiryChallenge
	}
	s.Effects = append(s.Effects, TimedEffect{
		TargetInstanceID: target,
		PowerDelta:       delta,
		Expiry:           expiry,
		Source:           source,
	})
}

// expireEffects drops every ledger entry with the given expiry.
func (s *GameState) expireEffects(expiry Expiry) {
	kept := s.Effects[:0:0]
	for _, fx := range s.Effects {
		if fx.Expiry != expiry {
			kept = append(kept, fx)
		}
	}
	s.Effects = kept
}

// dropEffects removes ledger entries on a card leaving play.
func (s *GameState) dropEffects(instanceID int) {
	kept := s.Effects[:0:0]
	for _, fx := range s.Effects {
		if fx.TargetInstanceID != instanceID {
			kept = append(kept, fx)
		}
	}
	s.Effects = kept
}

// targets lists the top-card instance ids an ability controlled by player may
// target. During a challenge only its participants are eligible.
func (e *Engine) targets(s *GameState, player int, ab *cards.Ability) ([]int, error) {
	if ab == nil || !ab.RequiresTarget {
		return nil, nil
	}
	var out []int
	for pi, p := range s.Players {
		switch ab.Target {
		case cards.TargetOwn:
			if pi != player {
				continue
			}
		case cards.TargetOpponent:
			if pi == player {
				continue
			}
		}
		for _, z := range []Zone{ZoneAlert, ZoneReserve} {
			for _, st := range *p.zone(z) {
				def, err := e.unitDef(st)
				if err != nil {
					return nil, err
				}
				if !def.Type.IsUnit() {
					continue
				}
				if ab.Target == cards.TargetPersonnel && def.Type != cards.TypePersonnel {
					continue
				}
				if ab.Target == cards.TargetShip && def.Type != cards.TypeShip {
					continue
				}
				id := st.Top().InstanceID
				if s.Challenge != nil && !s.Challenge.involves(id) {
					continue
				}
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (c *ChallengeState) involves(instanceID int) bool {
	if c.ChallengerInstanceID == instanceID {
		return true
	}
	return c.DefenderInstanceID != nil && *c.DefenderInstanceID == instanceID
}

// checkTarget validates an action's target against the ability. The bool is
// false when the target has left play.
func (e *Engine) checkTarget(s *GameState, player int, ab *cards.Ability, target *int) (bool, error) {
	if ab == nil || !ab.RequiresTarget {
		return true, nil
	}
	if target == nil {
		return false, illegal("%s requires a target", ab.ID)
	}
	if _, ok := s.findStack(*target); !ok {
		return false, nil
	}
	candidates, err := e.targets(s, player, ab)
	if err != nil {
		return false, err
	}
	ref, _ := s.findStack(*target)
	top := s.stack(ref).Top().InstanceID
	for _, id := range candidates {
		if id == top {
			return true, nil
		}
	}
	return false, illegal("instance %d is not a legal target", *target)
}

// resolveAbility applies a catalogue effect for player. Unknown abilities
// resolve as a logged no-op.
func (e *Engine) resolveAbility(s *GameState, player int, source string, ab *cards.Ability, target *int) {
	p := s.Players[player]
	if ab == nil {
		s.logf("%s: no effect implemented", source)
		return
	}

	switch ab.ID {
	case cards.AbilityInfluenceDrain:
		v := valueOr(ab.Value, 1)
		opp := s.Players[Opponent(player)]
		opp.Influence -= v
		s.logf("%s: %s loses %d influence.", source, opp.Name, v)

	case cards.AbilityInfluenceGain:
		v := valueOr(ab.Value, 1)
		p.Influence += v
		s.logf("%s: %s gains %d influence.", source, p.Name, v)

	case cards.AbilityPowerBuff:
		if target == nil {
			s.logf("%s: no target.", source)
			return
		}
		ref, ok := s.findStack(*target)
		if !ok {
			return
		}
		top := s.stack(ref).Top()
		v := valueOr(ab.Value, 1)
		s.addEffect(top.InstanceID, v, source)
		s.logf("%s: %s gets %+d power.", source, e.cardName(top.DefID), v)

	case cards.AbilityReadyReserve:
		n := s.readyReserve(player)
		s.logf("%s: %s readies %d reserve unit(s).", source, p.Name, n)

	case cards.AbilityDrawCards:
		n := s.draw(player, valueOr(ab.Value, 1))
		s.logf("%s: %s draws %d card(s).", source, p.Name, n)

	default:
		s.logf("%s: no effect implemented", source)
	}
}

func valueOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// abilitySource is something on the board whose ability can be activated.
type abilitySource struct {
	instanceID int
	name       string
	ability    *cards.Ability
	// resource stack index for bases, -1 for units
	stackIndex int
}

// abilitySources lists the activatable abilities of a player: the base when
// its resource stack is ready, and alert units with commit abilities that are
// not taking part in a challenge.
func (e *Engine) abilitySources(s *GameState, player int) ([]abilitySource, error) {
	p := s.Players[player]
	var out []abilitySource

	for i, rs := range p.Zones.ResourceStacks {
		if rs.Exhausted || !e.registry.IsBase(rs.TopCard.DefID) {
			continue
		}
		b, err := e.registry.Base(rs.TopCard.DefID)
		if err != nil {
			return nil, err
		}
		if b.Ability == nil || b.Ability.Trigger != cards.TriggerExhaust {
			continue
		}
		out = append(out, abilitySource{instanceID: rs.TopCard.InstanceID, name: b.Title, ability: b.Ability, stackIndex: i})
	}

	for _, st := range p.Zones.Alert {
		if st.Exhausted {
			continue
		}
		def, err := e.unitDef(st)
		if err != nil {
			return nil, err
		}
		if !def.Type.IsUnit() || def.Ability == nil || def.Ability.Trigger != cards.TriggerCommit {
			continue
		}
		id := st.Top().InstanceID
		if s.Challenge != nil && s.Challenge.involves(id) {
			continue
		}
		out = append(out, abilitySource{instanceID: id, name: def.Name(), ability: def.Ability, stackIndex: -1})
	}
	return out, nil
}

// activateAbility pays for and resolves the ability of source. The bool is
// false when the source or target has left play.
func (e *Engine) activateAbility(s *GameState, player int, a Action) (bool, error) {
	if !s.inPlay(a.SourceInstanceID) {
		return false, nil
	}
	srcs, err := e.abilitySources(s, player)
	if err != nil {
		return false, err
	}

	var src *abilitySource
	for i := range srcs {
		if srcs[i].instanceID == a.SourceInstanceID {
			src = &srcs[i]
			break
		}
	}
	if src == nil {
		ref, ok := s.findStack(a.SourceInstanceID)
		if ok {
			top := s.stack(ref).Top().InstanceID
			for i := range srcs {
				if srcs[i].instanceID == top {
					src = &srcs[i]
					break
				}
			}
		}
	}
	if src == nil {
		return false, illegal("instance %d has no ability %s can use", a.SourceInstanceID, s.Players[player].Name)
	}

	ok, err := e.checkTarget(s, player, src.ability, a.TargetInstanceID)
	if err != nil || !ok {
		return ok, err
	}

	if src.stackIndex >= 0 {
		s.Players[player].Zones.ResourceStacks[src.stackIndex].Exhausted = true
		s.logf("%s exhausts %s.", s.Players[player].Name, src.name)
	} else {
		s.commit(src.instanceID)
		s.logf("%s commits %s.", s.Players[player].Name, src.name)
	}
	e.resolveAbility(s, player, src.name, src.ability, a.TargetInstanceID)
	return true, nil
}
