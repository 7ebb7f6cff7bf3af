package game

import (
	"github.com/caprica/fleet-server/internal/game/rules"
)

func (e *Engine) applySetupAction(s *GameState, player int, a Action) (bool, error) {
	p := s.Players[player]
	if p.HasMulliganed {
		return false, illegal("%s has already decided on their hand", p.Name)
	}

	switch a.Type {
	case ActionKeepHand:
		s.logf("%s keeps their hand.", p.Name)
	case ActionRedraw:
		base, err := e.registry.Base(p.BaseID)
		if err != nil {
			return false, err
		}
		p.Deck = append(p.Deck, p.Hand...)
		p.Hand = nil
		s.shuffle(p.Deck)
		n := s.draw(player, base.HandSize)
		s.logf("%s redraws %d cards.", p.Name, n)
	default:
		return false, illegal("%s is not allowed during setup", a.Type)
	}
	p.HasMulliganed = true

	if s.Players[0].HasMulliganed && s.Players[1].HasMulliganed {
		return true, e.advance(s)
	}
	return true, nil
}

func (e *Engine) applyReadyAction(s *GameState, player int, a Action) (bool, error) {
	switch s.ReadyStep {
	case rules.StepDraw:
		if a.Type != ActionDrawCards {
			return false, illegal("%s is not allowed in the draw step", a.Type)
		}
		for i, p := range s.Players {
			n := s.draw(i, 2)
			s.logf("%s draws %d card(s).", p.Name, n)
		}
		return true, e.advance(s)

	case rules.StepResource:
		if err := s.requireActive(player); err != nil {
			return false, err
		}
		switch a.Type {
		case ActionDeployResource:
			if err := e.deployResource(s, player, a); err != nil {
				return false, err
			}
		case ActionPass:
			s.logf("%s does not deploy a resource.", s.Players[player].Name)
		default:
			return false, illegal("%s is not allowed in the resource step", a.Type)
		}
		s.Players[player].HasPlayedResource = true
		return true, e.nextInReadyStep(s, player)

	case rules.StepReorder:
		if err := s.requireActive(player); err != nil {
			return false, err
		}
		if a.Type != ActionDoneReorder {
			return false, illegal("%s is not allowed in the reorder step", a.Type)
		}
		return true, e.nextInReadyStep(s, player)
	}
	return false, illegal("no actions in ready step %s", s.ReadyStep)
}

// nextInReadyStep hands the step to the second player or, after the second
// player, moves on.
func (e *Engine) nextInReadyStep(s *GameState, player int) error {
	if player == s.FirstPlayerIndex {
		s.ActivePlayerIndex = Opponent(player)
		return nil
	}
	return e.advance(s)
}

func (e *Engine) deployResource(s *GameState, player int, a Action) error {
	p := s.Players[player]
	def, err := e.cardAt(s, player, a.HandIndex)
	if err != nil {
		return err
	}

	if a.AsSupply {
		idx := 0
		if a.TargetStackIndex != nil {
			idx = *a.TargetStackIndex
		}
		if idx < 0 || idx >= len(p.Zones.ResourceStacks) {
			return illegal("resource stack %d does not exist", idx)
		}
		c := p.removeFromHand(a.HandIndex)
		c.FaceUp = false
		rs := &p.Zones.ResourceStacks[idx]
		rs.SupplyCards = append(rs.SupplyCards, c)
		s.logf("%s adds a supply card to %s.", p.Name, e.cardName(rs.TopCard.DefID))
		return nil
	}

	if !def.Resource.Valid() {
		return illegal("%s produces no resource", def.Name())
	}
	c := p.removeFromHand(a.HandIndex)
	c.FaceUp = true
	p.Zones.ResourceStacks = append(p.Zones.ResourceStacks, ResourceStack{TopCard: c})
	s.logf("%s deploys %s as an asset.", p.Name, def.Name())
	return nil
}

// advance moves the game to the next phase or ready step, running any steps
// that need no player input.
func (e *Engine) advance(s *GameState) error {
	leaving := s.Phase
	next, step, newTurn := rules.Advance(s.Phase, s.ReadyStep)
	s.Phase, s.ReadyStep = next, step
	if leaving != next {
		s.expireEffects(ExpiryPhase)
	}

	if newTurn {
		s.Turn++
		if s.Turn > 1 {
			s.FirstPlayerIndex = Opponent(s.FirstPlayerIndex)
		}
		for _, p := range s.Players {
			p.HasPlayedResource = false
			p.HasResolvedMission = false
			p.ConsecutivePasses = 0
		}
		s.logf("Turn %d begins. %s goes first.", s.Turn, s.Players[s.FirstPlayerIndex].Name)
	}
	s.ActivePlayerIndex = s.FirstPlayerIndex

	switch {
	case next == rules.PhaseReady && step == rules.StepReadying:
		for i := range s.Players {
			s.readyReserve(i)
		}
		return e.advance(s)
	case next == rules.PhaseReady && step == rules.StepRestore:
		for _, p := range s.Players {
			for i := range p.Zones.Alert {
				p.Zones.Alert[i].Exhausted = false
			}
			for i := range p.Zones.Reserve {
				p.Zones.Reserve[i].Exhausted = false
			}
			for i := range p.Zones.ResourceStacks {
				p.Zones.ResourceStacks[i].Exhausted = false
			}
		}
		return e.advance(s)
	case next == rules.PhaseExecution:
		for _, p := range s.Players {
			p.ConsecutivePasses = 0
		}
		s.logf("Execution phase begins.")
	case next == rules.PhaseCylon:
		return e.startCylonPhase(s)
	}
	return nil
}
