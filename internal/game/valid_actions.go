package game

import (
	"fmt"

	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/game/rules"
)

// ValidActions returns every action viewer may take in s. Actions that cannot
// be afforded or have no legal choice are left out rather than disabled.
func (e *Engine) ValidActions(s *GameState, viewer int) ([]ValidAction, error) {
	if viewer != 0 && viewer != 1 {
		return nil, fmt.Errorf("no such player %d", viewer)
	}
	if s.Phase == rules.PhaseGameOver {
		return nil, nil
	}
	if s.Challenge != nil {
		return e.challengeActions(s, viewer)
	}

	p := s.Players[viewer]
	switch s.Phase {
	case rules.PhaseSetup:
		if p.HasMulliganed {
			return nil, nil
		}
		return []ValidAction{
			{Type: ActionKeepHand, Description: "Keep your opening hand"},
			{Type: ActionRedraw, Description: "Shuffle your hand into your deck and draw a new one"},
		}, nil

	case rules.PhaseReady:
		return e.readyActions(s, viewer), nil

	case rules.PhaseExecution:
		if s.ActivePlayerIndex != viewer {
			return nil, nil
		}
		return e.executionActions(s, viewer)

	case rules.PhaseCylon:
		if s.ActivePlayerIndex != viewer {
			return nil, nil
		}
		return e.cylonActions(s, viewer)
	}
	return nil, nil
}

func (e *Engine) readyActions(s *GameState, viewer int) []ValidAction {
	p := s.Players[viewer]
	switch s.ReadyStep {
	case rules.StepDraw:
		return []ValidAction{{Type: ActionDrawCards, Description: "Draw 2 cards"}}

	case rules.StepResource:
		if s.ActivePlayerIndex != viewer {
			return nil
		}
		var out []ValidAction
		var assets []int
		for i, c := range p.Hand {
			if def, err := e.registry.Card(c.DefID); err == nil && def.Resource.Valid() {
				assets = append(assets, i)
			}
		}
		if len(assets) > 0 {
			out = append(out, ValidAction{
				Type:        ActionDeployResource,
				Description: "Deploy a card as a new asset",
				HandIndices: assets,
			})
		}
		if len(p.Hand) > 0 && len(p.Zones.ResourceStacks) > 0 {
			out = append(out, ValidAction{
				Type:         ActionDeployResource,
				Description:  "Place a card face down as supply",
				HandIndices:  indices(len(p.Hand)),
				StackIndices: indices(len(p.Zones.ResourceStacks)),
				AsSupply:     true,
			})
		}
		return append(out, ValidAction{Type: ActionPass, Description: "Do not deploy a resource"})

	case rules.StepReorder:
		if s.ActivePlayerIndex != viewer {
			return nil
		}
		return []ValidAction{{Type: ActionDoneReorder, Description: "Finish reordering"}}
	}
	return nil
}

func (e *Engine) executionActions(s *GameState, viewer int) ([]ValidAction, error) {
	p := s.Players[viewer]
	var out []ValidAction

	play := ValidAction{Type: ActionPlayCard, Description: "Play a card", Targets: map[int][]int{}}
	for i, c := range p.Hand {
		def, err := e.registry.Card(c.DefID)
		if err != nil {
			return nil, err
		}
		ok, targets, err := e.playable(s, viewer, def)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		play.HandIndices = append(play.HandIndices, i)
		if targets != nil {
			play.Targets[i] = targets
		}
	}
	if len(play.HandIndices) > 0 {
		out = append(out, compactTargets(play))
	}

	abilities, err := e.abilityAction(s, viewer)
	if err != nil {
		return nil, err
	}
	if abilities != nil {
		out = append(out, *abilities)
	}

	challengers, err := e.challengers(s, viewer)
	if err != nil {
		return nil, err
	}
	if len(challengers) > 0 {
		out = append(out, ValidAction{
			Type:          ActionChallenge,
			Description:   "Challenge your opponent",
			InstanceIDs:   challengers,
			OpponentIndex: Opponent(viewer),
		})
	}

	var missions []int
	for _, st := range p.Zones.Alert {
		def, _, err := e.resolvableMission(s, viewer, st)
		if err != nil {
			return nil, err
		}
		if def != nil {
			missions = append(missions, st.Top().InstanceID)
		}
	}
	if len(missions) > 0 {
		out = append(out, ValidAction{Type: ActionResolveMission, Description: "Resolve a mission", InstanceIDs: missions})
	}

	return append(out, ValidAction{Type: ActionPass, Description: "Pass"}), nil
}

// playable reports whether a card in hand can be played now, and the targets
// it may choose when it needs one.
func (e *Engine) playable(s *GameState, player int, def *cards.CardDef) (bool, []int, error) {
	ok, err := e.canAfford(s, player, def.Cost)
	if err != nil || !ok {
		return false, nil, err
	}
	if def.Type != cards.TypeEvent {
		return true, nil, nil
	}
	if def.Ability == nil || !def.Ability.RequiresTarget {
		return true, nil, nil
	}
	targets, err := e.targets(s, player, def.Ability)
	if err != nil {
		return false, nil, err
	}
	return len(targets) > 0, targets, nil
}

func (e *Engine) abilityAction(s *GameState, viewer int) (*ValidAction, error) {
	srcs, err := e.abilitySources(s, viewer)
	if err != nil {
		return nil, err
	}
	va := ValidAction{Type: ActionPlayAbility, Description: "Use an ability", Targets: map[int][]int{}}
	for _, src := range srcs {
		targets, err := e.targets(s, viewer, src.ability)
		if err != nil {
			return nil, err
		}
		if src.ability.RequiresTarget {
			if len(targets) == 0 {
				continue
			}
			va.Targets[src.instanceID] = targets
		}
		va.InstanceIDs = append(va.InstanceIDs, src.instanceID)
	}
	if len(va.InstanceIDs) == 0 {
		return nil, nil
	}
	va = compactTargets(va)
	return &va, nil
}

// challengers lists the ready alert units of player.
func (e *Engine) challengers(s *GameState, player int) ([]int, error) {
	var out []int
	for _, st := range s.Players[player].Zones.Alert {
		if st.Exhausted {
			continue
		}
		def, err := e.unitDef(st)
		if err != nil {
			return nil, err
		}
		if def.Type.IsUnit() {
			out = append(out, st.Top().InstanceID)
		}
	}
	return out, nil
}

func (e *Engine) challengeActions(s *GameState, viewer int) ([]ValidAction, error) {
	c := s.Challenge
	if s.ActivePlayerIndex != viewer {
		return nil, nil
	}

	switch c.Step {
	case ChallengeChooseDefender:
		ids, err := e.defenders(s)
		if err != nil {
			return nil, err
		}
		return []ValidAction{{
			Type:        ActionDefend,
			Description: "Choose a defender or decline",
			InstanceIDs: ids,
		}}, nil

	case ChallengeEffects:
		p := s.Players[viewer]
		var out []ValidAction

		events := ValidAction{Type: ActionPlayEventInChallenge, Description: "Play an event", Targets: map[int][]int{}}
		for i, card := range p.Hand {
			def, err := e.registry.Card(card.DefID)
			if err != nil {
				return nil, err
			}
			if def.Type != cards.TypeEvent {
				continue
			}
			ok, targets, err := e.playable(s, viewer, def)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			events.HandIndices = append(events.HandIndices, i)
			if targets != nil {
				events.Targets[i] = targets
			}
		}
		if len(events.HandIndices) > 0 {
			out = append(out, compactTargets(events))
		}

		abilities, err := e.abilityAction(s, viewer)
		if err != nil {
			return nil, err
		}
		if abilities != nil {
			out = append(out, *abilities)
		}
		return append(out, ValidAction{Type: ActionChallengePass, Description: "Pass"}), nil
	}
	return nil, nil
}

func (e *Engine) cylonActions(s *GameState, viewer int) ([]ValidAction, error) {
	var out []ValidAction
	units, err := e.challengers(s, viewer)
	if err != nil {
		return nil, err
	}
	if len(units) > 0 && len(s.CylonThreats) > 0 {
		out = append(out, ValidAction{
			Type:          ActionChallengeCylon,
			Description:   "Challenge a Cylon threat",
			InstanceIDs:   units,
			ThreatIndices: indices(len(s.CylonThreats)),
		})
	}
	return append(out, ValidAction{Type: ActionPassCylon, Description: "Pass and lose 1 influence"}), nil
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func compactTargets(v ValidAction) ValidAction {
	if len(v.Targets) == 0 {
		v.Targets = nil
	}
	return v
}

// Actions expands a valid action into every concrete action it allows.
func (v ValidAction) Actions() []Action {
	withTargets := func(base Action, key int) []Action {
		targets, ok := v.Targets[key]
		if !ok {
			return []Action{base}
		}
		out := make([]Action, 0, len(targets))
		for _, t := range targets {
			a := base
			a.TargetInstanceID = IntPtr(t)
			out = append(out, a)
		}
		return out
	}

	var out []Action
	switch v.Type {
	case ActionDeployResource:
		for _, h := range v.HandIndices {
			if !v.AsSupply {
				out = append(out, Action{Type: v.Type, HandIndex: h})
				continue
			}
			for _, st := range v.StackIndices {
				out = append(out, Action{Type: v.Type, HandIndex: h, AsSupply: true, TargetStackIndex: IntPtr(st)})
			}
		}
	case ActionPlayCard, ActionPlayEventInChallenge:
		for _, h := range v.HandIndices {
			out = append(out, withTargets(Action{Type: v.Type, HandIndex: h}, h)...)
		}
	case ActionPlayAbility:
		for _, id := range v.InstanceIDs {
			out = append(out, withTargets(Action{Type: v.Type, SourceInstanceID: id}, id)...)
		}
	case ActionChallenge:
		for _, id := range v.InstanceIDs {
			out = append(out, Action{Type: v.Type, InstanceID: id, OpponentIndex: v.OpponentIndex})
		}
	case ActionResolveMission:
		for _, id := range v.InstanceIDs {
			out = append(out, Action{Type: v.Type, InstanceID: id})
		}
	case ActionDefend:
		for _, id := range v.InstanceIDs {
			out = append(out, Action{Type: v.Type, DefenderInstanceID: IntPtr(id)})
		}
		out = append(out, Action{Type: v.Type})
	case ActionChallengeCylon:
		for _, id := range v.InstanceIDs {
			for _, t := range v.ThreatIndices {
				out = append(out, Action{Type: v.Type, InstanceID: id, ThreatIndex: t})
			}
		}
	default:
		out = append(out, Action{Type: v.Type})
	}
	return out
}
