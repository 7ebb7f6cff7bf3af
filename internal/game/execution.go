package game

import (
	"github.com/caprica/fleet-server/internal/cards"
)

func (e *Engine) applyExecutionAction(s *GameState, player int, a Action) (bool, error) {
	if err := s.requireActive(player); err != nil {
		return false, err
	}

	var (
		applied bool
		err     error
	)
	switch a.Type {
	case ActionPlayCard:
		applied, err = e.playCard(s, player, a)
	case ActionPlayAbility:
		applied, err = e.activateAbility(s, player, a)
	case ActionResolveMission:
		applied, err = e.resolveMission(s, player, a)
	case ActionChallenge:
		// The challenge keeps the turn until it resolves.
		return e.startChallenge(s, player, a)
	case ActionPass:
		return true, e.passExecution(s, player)
	default:
		return false, illegal("%s is not allowed in the execution phase", a.Type)
	}
	if err != nil || !applied {
		return applied, err
	}

	s.resetPasses()
	s.ActivePlayerIndex = Opponent(player)
	return true, nil
}

func (s *GameState) resetPasses() {
	for _, p := range s.Players {
		p.ConsecutivePasses = 0
	}
}

func (e *Engine) passExecution(s *GameState, player int) error {
	p := s.Players[player]
	p.ConsecutivePasses++
	s.logf("%s passes.", p.Name)

	if s.Players[0].ConsecutivePasses > 0 && s.Players[1].ConsecutivePasses > 0 {
		s.logf("Both players pass. Execution phase ends.")
		return e.advance(s)
	}
	s.ActivePlayerIndex = Opponent(player)
	return nil
}

// playCard plays a unit, mission or event from hand during execution.
func (e *Engine) playCard(s *GameState, player int, a Action) (bool, error) {
	p := s.Players[player]
	def, err := e.cardAt(s, player, a.HandIndex)
	if err != nil {
		return false, err
	}

	if def.Type == cards.TypeEvent {
		return e.playEvent(s, player, a, def)
	}

	if err := e.pay(s, player, def.Cost); err != nil {
		return false, err
	}
	c := p.removeFromHand(a.HandIndex)
	c.FaceUp = true

	ref, overlay, err := e.overlayTarget(s, player, def)
	if err != nil {
		return false, err
	}
	if overlay {
		st := s.stack(ref)
		st.Cards = append([]CardInstance{c}, st.Cards...)
		st.Exhausted = false
		s.logf("%s overlays %s.", p.Name, def.Name())
		return true, nil
	}

	p.Zones.Reserve = append(p.Zones.Reserve, UnitStack{Cards: []CardInstance{c}})
	s.logf("%s plays %s.", p.Name, def.Name())
	return true, nil
}

// playEvent pays for an event, resolves it and discards it.
func (e *Engine) playEvent(s *GameState, player int, a Action, def *cards.CardDef) (bool, error) {
	p := s.Players[player]
	if def.Type != cards.TypeEvent {
		return false, illegal("%s is not an event", def.Name())
	}
	ok, err := e.checkTarget(s, player, def.Ability, a.TargetInstanceID)
	if err != nil || !ok {
		return ok, err
	}
	if err := e.pay(s, player, def.Cost); err != nil {
		return false, err
	}

	c := p.removeFromHand(a.HandIndex)
	c.FaceUp = true
	s.logf("%s plays %s.", p.Name, def.Name())
	e.resolveAbility(s, player, def.Name(), def.Ability, a.TargetInstanceID)
	p.Discard = append(p.Discard, c)
	return true, nil
}

// missionUnits returns the alert units that would be committed to resolve a
// mission, or nil when the requirement is not met.
func (e *Engine) missionUnits(s *GameState, player int, req *cards.Requirement) ([]int, error) {
	need := 0
	trait := ""
	if req != nil {
		need = req.Count
		trait = req.Trait
	}
	if need <= 0 {
		return []int{}, nil
	}

	var out []int
	for _, st := range s.Players[player].Zones.Alert {
		if st.Exhausted {
			continue
		}
		def, err := e.unitDef(st)
		if err != nil {
			return nil, err
		}
		if !def.Type.IsUnit() {
			continue
		}
		if trait != "" && !def.HasTrait(trait) {
			continue
		}
		out = append(out, st.Top().InstanceID)
		if len(out) == need {
			return out, nil
		}
	}
	return nil, nil
}

// resolvableMission reports whether the stack is an alert mission the player
// can resolve right now, returning the units it would commit.
func (e *Engine) resolvableMission(s *GameState, player int, st UnitStack) (*cards.CardDef, []int, error) {
	if s.Players[player].HasResolvedMission || st.Exhausted {
		return nil, nil, nil
	}
	def, err := e.unitDef(st)
	if err != nil {
		return nil, nil, err
	}
	if def.Type != cards.TypeMission {
		return nil, nil, nil
	}
	units, err := e.missionUnits(s, player, def.Resolve)
	if err != nil || units == nil {
		return nil, nil, err
	}
	return def, units, nil
}

func (e *Engine) resolveMission(s *GameState, player int, a Action) (bool, error) {
	p := s.Players[player]
	ref, ok := s.findStack(a.InstanceID)
	if !ok {
		return false, nil
	}
	if ref.player != player || ref.zone != ZoneAlert {
		return false, illegal("instance %d is not an alert mission of %s", a.InstanceID, p.Name)
	}

	def, units, err := e.resolvableMission(s, player, *s.stack(ref))
	if err != nil {
		return false, err
	}
	if def == nil {
		return false, illegal("instance %d cannot be resolved", a.InstanceID)
	}

	for _, id := range units {
		s.commit(id)
	}
	s.logf("%s resolves %s.", p.Name, def.Name())

	var target *int
	if def.Ability != nil && def.Ability.RequiresTarget {
		ids, err := e.targets(s, player, def.Ability)
		if err != nil {
			return false, err
		}
		if len(ids) > 0 {
			target = IntPtr(ids[0])
		}
	}
	e.resolveAbility(s, player, def.Name(), def.Ability, target)

	// The ability may have moved the mission; look it up again.
	if ref, ok := s.findStack(a.InstanceID); ok {
		st := s.removeStack(ref)
		p.Discard = append(p.Discard, st.Cards...)
	}
	p.HasResolvedMission = true
	return true, nil
}
