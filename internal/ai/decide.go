// Package ai implements the computer opponent: a heuristic action selector
// and a deck builder.
package ai

import (
	"errors"
	"fmt"

	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/game"
	"github.com/caprica/fleet-server/internal/game/resource"
	"github.com/caprica/fleet-server/internal/game/rules"
)

// ErrNoActions is returned when the player has nothing to do.
var ErrNoActions = errors.New("no valid actions")

// Minimum power to start a challenge, and how far below a threat's power a
// unit may be and still take it on.
const (
	minChallengePower = 2
	cylonTolerance    = 2
)

// Decide picks one concrete action for player from valid. Ties go to the
// first candidate in hand or board order, so the choice is deterministic.
func Decide(e *game.Engine, s *game.GameState, player int, valid []game.ValidAction) (game.Action, error) {
	if len(valid) == 0 {
		return game.Action{}, ErrNoActions
	}
	d := decider{engine: e, reg: e.Registry(), state: s, player: player, valid: valid}

	if s.Challenge != nil {
		return d.challenge()
	}
	switch s.Phase {
	case rules.PhaseSetup:
		return d.first(game.ActionKeepHand)
	case rules.PhaseReady:
		switch s.ReadyStep {
		case rules.StepDraw:
			return d.first(game.ActionDrawCards)
		case rules.StepResource:
			return d.resource()
		case rules.StepReorder:
			return d.first(game.ActionDoneReorder)
		}
	case rules.PhaseExecution:
		return d.execution()
	case rules.PhaseCylon:
		return d.cylon()
	}
	return valid[0].Actions()[0], nil
}

type decider struct {
	engine *game.Engine
	reg    *cards.Registry
	state  *game.GameState
	player int
	valid  []game.ValidAction
}

func (d decider) find(t game.ActionType) (game.ValidAction, bool) {
	for _, va := range d.valid {
		if va.Type == t {
			return va, true
		}
	}
	return game.ValidAction{}, false
}

// first returns the first concrete action of type t, falling back to the
// first valid action.
func (d decider) first(t game.ActionType) (game.Action, error) {
	if va, ok := d.find(t); ok {
		if acts := va.Actions(); len(acts) > 0 {
			return acts[0], nil
		}
	}
	acts := d.valid[0].Actions()
	if len(acts) == 0 {
		return game.Action{}, fmt.Errorf("%w: %s offers no choices", ErrNoActions, d.valid[0].Type)
	}
	return acts[0], nil
}

func (d decider) handCard(i int) *cards.CardDef {
	p := d.state.Players[d.player]
	if i < 0 || i >= len(p.Hand) {
		return nil
	}
	def, err := d.reg.Card(p.Hand[i].DefID)
	if err != nil {
		return nil
	}
	return def
}

func (d decider) power(instanceID int) int {
	p, err := d.engine.Power(d.state, instanceID)
	if err != nil {
		return 0
	}
	return p
}

// strongest returns the id with the highest power, first found on ties.
func (d decider) strongest(ids []int) (int, int, bool) {
	best, bestPower, ok := 0, 0, false
	for _, id := range ids {
		p := d.power(id)
		if !ok || p > bestPower {
			best, bestPower, ok = id, p, true
		}
	}
	return best, bestPower, ok
}

// target picks a target for a card or ability: the strongest candidate.
func (d decider) target(va game.ValidAction, key int) *int {
	ids, ok := va.Targets[key]
	if !ok {
		return nil
	}
	id, _, found := d.strongest(ids)
	if !found {
		return nil
	}
	return game.IntPtr(id)
}

func (d decider) resource() (game.Action, error) {
	var baseType resource.Type
	if b, err := d.reg.Base(d.state.Players[d.player].BaseID); err == nil {
		baseType = b.Resource
	}

	var asset, supply *game.ValidAction
	for i := range d.valid {
		va := &d.valid[i]
		if va.Type != game.ActionDeployResource {
			continue
		}
		if va.AsSupply {
			supply = va
		} else {
			asset = va
		}
	}

	if asset != nil {
		for _, h := range asset.HandIndices {
			if def := d.handCard(h); def != nil && def.Resource == baseType {
				return game.Action{Type: game.ActionDeployResource, HandIndex: h}, nil
			}
		}
		if len(asset.HandIndices) > 0 {
			return game.Action{Type: game.ActionDeployResource, HandIndex: asset.HandIndices[0]}, nil
		}
	}
	if supply != nil && len(supply.StackIndices) > 0 {
		for _, h := range supply.HandIndices {
			if def := d.handCard(h); def != nil && !def.Resource.Valid() {
				return game.Action{
					Type:             game.ActionDeployResource,
					HandIndex:        h,
					AsSupply:         true,
					TargetStackIndex: game.IntPtr(supply.StackIndices[0]),
				}, nil
			}
		}
	}
	return d.first(game.ActionPass)
}

// playScore ranks cards for the execution phase. Units and missions come
// first, stronger units before weaker ones.
func playScore(def *cards.CardDef) int {
	switch {
	case def.Type.IsUnit():
		return 100 + def.Power
	case def.Type == cards.TypeMission:
		return 50
	default:
		return 0
	}
}

func (d decider) execution() (game.Action, error) {
	if va, ok := d.find(game.ActionPlayCard); ok {
		bestIdx, bestScore := -1, 0
		for _, h := range va.HandIndices {
			def := d.handCard(h)
			if def == nil {
				continue
			}
			if score := playScore(def); bestIdx < 0 || score > bestScore {
				bestIdx, bestScore = h, score
			}
		}
		if bestIdx >= 0 {
			return game.Action{Type: game.ActionPlayCard, HandIndex: bestIdx, TargetInstanceID: d.target(va, bestIdx)}, nil
		}
	}

	if va, ok := d.find(game.ActionResolveMission); ok && len(va.InstanceIDs) > 0 {
		return game.Action{Type: game.ActionResolveMission, InstanceID: va.InstanceIDs[0]}, nil
	}

	if va, ok := d.find(game.ActionChallenge); ok {
		if id, power, found := d.strongest(va.InstanceIDs); found && power >= minChallengePower {
			return game.Action{Type: game.ActionChallenge, InstanceID: id, OpponentIndex: va.OpponentIndex}, nil
		}
	}

	if va, ok := d.find(game.ActionPlayAbility); ok && len(va.InstanceIDs) > 0 {
		src := va.InstanceIDs[0]
		return game.Action{Type: game.ActionPlayAbility, SourceInstanceID: src, TargetInstanceID: d.target(va, src)}, nil
	}

	return d.first(game.ActionPass)
}

func (d decider) challenge() (game.Action, error) {
	c := d.state.Challenge

	if va, ok := d.find(game.ActionDefend); ok {
		challengerPower := d.power(c.ChallengerInstanceID)
		if id, power, found := d.strongest(va.InstanceIDs); found && power >= challengerPower-1 {
			return game.Action{Type: game.ActionDefend, DefenderInstanceID: game.IntPtr(id)}, nil
		}
		return game.Action{Type: game.ActionDefend}, nil
	}

	if va, ok := d.find(game.ActionPlayEventInChallenge); ok {
		for _, h := range va.HandIndices {
			def := d.handCard(h)
			if def == nil || !affectsChallenge(def.Ability) {
				continue
			}
			return game.Action{
				Type:             game.ActionPlayEventInChallenge,
				HandIndex:        h,
				TargetInstanceID: d.target(va, h),
			}, nil
		}
	}
	return d.first(game.ActionChallengePass)
}

// affectsChallenge reports whether an event changes power or influence.
func affectsChallenge(ab *cards.Ability) bool {
	if ab == nil {
		return false
	}
	switch ab.ID {
	case cards.AbilityPowerBuff, cards.AbilityInfluenceDrain, cards.AbilityInfluenceGain:
		return true
	}
	return false
}

func (d decider) cylon() (game.Action, error) {
	va, ok := d.find(game.ActionChallengeCylon)
	if !ok {
		return d.first(game.ActionPassCylon)
	}
	unit, power, found := d.strongest(va.InstanceIDs)
	if !found {
		return d.first(game.ActionPassCylon)
	}

	threat, threatPower := -1, 0
	for _, i := range va.ThreatIndices {
		t := d.state.CylonThreats[i]
		if t.Power > power+cylonTolerance {
			continue
		}
		if threat < 0 || t.Power < threatPower {
			threat, threatPower = i, t.Power
		}
	}
	if threat < 0 {
		return d.first(game.ActionPassCylon)
	}
	return game.Action{Type: game.ActionChallengeCylon, InstanceID: unit, ThreatIndex: threat}, nil
}
