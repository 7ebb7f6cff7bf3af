package game

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGame(t *testing.T) {
	_, s := newTestGame(t, 1)

	assert.Equal(t, rules.PhaseSetup, s.Phase)
	assert.Equal(t, 7, s.FleetDefenseLevel)
	assert.Equal(t, 0, s.Turn)
	assert.Nil(t, s.Winner)

	for i, p := range s.Players {
		assert.Len(t, p.Hand, 8, "player %d hand", i)
		assert.Len(t, p.Deck, 52, "player %d deck", i)
		require.Len(t, p.Zones.ResourceStacks, 1)
		assert.Equal(t, p.BaseID, p.Zones.ResourceStacks[0].TopCard.DefID)
	}
	assert.Equal(t, 10, s.Players[0].Influence)
	assert.Equal(t, 12, s.Players[1].Influence)
	assert.Equal(t, 122, s.CardCount())

	seen := map[int]bool{}
	for _, p := range s.Players {
		for _, c := range append(append([]CardInstance{}, p.Hand...), p.Deck...) {
			assert.False(t, seen[c.InstanceID], "duplicate instance id %d", c.InstanceID)
			seen[c.InstanceID] = true
		}
	}
}

func TestCreateGameIsDeterministic(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.CreateGame(testConfig(e, 42))
	require.NoError(t, err)
	b, err := e.CreateGame(testConfig(e, 42))
	require.NoError(t, err)
	c, err := e.CreateGame(testConfig(e, 43))
	require.NoError(t, err)

	sumA, err := Checksum(a)
	require.NoError(t, err)
	sumB, err := Checksum(b)
	require.NoError(t, err)
	sumC, err := Checksum(c)
	require.NoError(t, err)

	assert.Equal(t, sumA, sumB)
	assert.NotEqual(t, sumA, sumC)
}

func TestCreateGameUnknownDefinitions(t *testing.T) {
	e := newTestEngine(t)

	cfg := testConfig(e, 1)
	cfg.Players[1].BaseID = "basestar"
	_, err := e.CreateGame(cfg)
	assert.True(t, errors.Is(err, cards.ErrUnknownBase))

	cfg = testConfig(e, 1)
	cfg.Players[0].DeckCardIDs = append(cfg.Players[0].DeckCardIDs, "no-such-card")
	_, err = e.CreateGame(cfg)
	assert.True(t, errors.Is(err, cards.ErrUnknownCard))

	cfg = testConfig(e, 1)
	cfg.FirstPlayer = 2
	_, err = e.CreateGame(cfg)
	assert.Error(t, err)
}

func TestSetupRequiresBothPlayers(t *testing.T) {
	e, s := newTestGame(t, 3)

	s = apply(t, e, s, 0, Action{Type: ActionKeepHand})
	assert.Equal(t, rules.PhaseSetup, s.Phase, "ready phase must wait for the second player")

	_, err := e.ApplyAction(s, 0, Action{Type: ActionRedraw})
	assert.True(t, errors.Is(err, ErrIllegalAction), "a player decides only once")

	s = apply(t, e, s, 1, Action{Type: ActionRedraw})
	assert.Equal(t, rules.PhaseReady, s.Phase)
	assert.Equal(t, rules.StepDraw, s.ReadyStep)
	assert.Equal(t, 1, s.Turn)
	assert.Len(t, s.Players[1].Hand, 8)
	assert.Equal(t, 122, s.CardCount())
}

func TestReadyPhase(t *testing.T) {
	e, s := newTestGame(t, 5)
	s = apply(t, e, s, 0, Action{Type: ActionKeepHand})
	s = apply(t, e, s, 1, Action{Type: ActionKeepHand})

	s = apply(t, e, s, 1, Action{Type: ActionDrawCards})
	assert.Len(t, s.Players[0].Hand, 10)
	assert.Len(t, s.Players[1].Hand, 10)
	require.Equal(t, rules.StepResource, s.ReadyStep)
	assert.Equal(t, 0, s.ActivePlayerIndex)

	_, err := e.ApplyAction(s, 1, Action{Type: ActionPass})
	assert.True(t, errors.Is(err, ErrIllegalAction), "second player must wait for the first")

	s = apply(t, e, s, 0, Action{Type: ActionDeployResource, HandIndex: 0, AsSupply: true, TargetStackIndex: IntPtr(0)})
	assert.Equal(t, 2, s.Players[0].Zones.ResourceStacks[0].Quantity())
	assert.Equal(t, 1, s.ActivePlayerIndex)

	s = apply(t, e, s, 1, Action{Type: ActionPass})
	require.Equal(t, rules.StepReorder, s.ReadyStep)
	assert.Equal(t, 0, s.ActivePlayerIndex)

	s = apply(t, e, s, 0, Action{Type: ActionDoneReorder})
	assert.Equal(t, rules.PhaseReady, s.Phase)
	s = apply(t, e, s, 1, Action{Type: ActionDoneReorder})
	assert.Equal(t, rules.PhaseExecution, s.Phase)
	assert.Equal(t, 0, s.ActivePlayerIndex)
}

func TestDeployAsset(t *testing.T) {
	e, s := newTestGame(t, 5)
	s.Phase = rules.PhaseReady
	s.ReadyStep = rules.StepResource
	s.Players[0].Hand = nil
	idx := addToHand(s, 0, "starbuck")

	s = apply(t, e, s, 0, Action{Type: ActionDeployResource, HandIndex: idx})
	require.Len(t, s.Players[0].Zones.ResourceStacks, 2)
	asset := s.Players[0].Zones.ResourceStacks[1]
	assert.Equal(t, "starbuck", asset.TopCard.DefID)
	assert.True(t, asset.TopCard.FaceUp)
	assert.Empty(t, s.Players[0].Hand)

	idx = addToHand(s, 1, "cylon-ambush")
	_, err := e.ApplyAction(s, 1, Action{Type: ActionDeployResource, HandIndex: idx})
	assert.True(t, errors.Is(err, ErrIllegalAction), "events produce no resource")
}

func TestPlayUnitGoesToReserve(t *testing.T) {
	e, s := executionGame(t)
	idx := addToHand(s, 0, "colonial-marine")

	s = apply(t, e, s, 0, Action{Type: ActionPlayCard, HandIndex: idx})
	require.Len(t, s.Players[0].Zones.Reserve, 1)
	assert.Equal(t, "colonial-marine", s.Players[0].Zones.Reserve[0].Top().DefID)
	assert.True(t, s.Players[0].Zones.ResourceStacks[0].Exhausted)
	assert.Equal(t, 1, s.Players[0].Zones.ResourceStacks[0].Quantity(), "exhausting keeps the quantity")
	assert.Equal(t, 1, s.ActivePlayerIndex)
}

func TestCannotPlayUnaffordableCard(t *testing.T) {
	e, s := executionGame(t)
	idx := addToHand(s, 0, "adama-admiral")

	_, err := e.ApplyAction(s, 0, Action{Type: ActionPlayCard, HandIndex: idx})
	assert.True(t, errors.Is(err, ErrIllegalAction))

	actions, err := e.ValidActions(s, 0)
	require.NoError(t, err)
	for _, va := range actions {
		assert.NotEqual(t, ActionPlayCard, va.Type)
	}
}

func TestOverlay(t *testing.T) {
	e, s := executionGame(t)
	addSupply(s, 0, 0, 1)
	existing := addUnit(s, 0, ZoneAlert, "adama-commander")
	s.Players[0].Zones.Alert[0].Exhausted = true
	idx := addToHand(s, 0, "adama-commander")

	s = apply(t, e, s, 0, Action{Type: ActionPlayCard, HandIndex: idx})

	p := s.Players[0]
	require.Len(t, p.Zones.Alert, 1, "overlay must not create a new stack")
	assert.Empty(t, p.Zones.Reserve)
	st := p.Zones.Alert[0]
	assert.Len(t, st.Cards, 2)
	assert.Equal(t, existing, st.Cards[1].InstanceID)
	assert.False(t, st.Exhausted, "overlay refreshes the stack")
}

func TestOverlayMatchesTitle(t *testing.T) {
	for _, zone := range []Zone{ZoneAlert, ZoneReserve} {
		t.Run(string(zone), func(t *testing.T) {
			e, s := executionGame(t)
			addSupply(s, 0, 0, 2)
			existing := addUnit(s, 0, zone, "adama-commander")
			idx := addToHand(s, 0, "adama-admiral")

			s = apply(t, e, s, 0, Action{Type: ActionPlayCard, HandIndex: idx})

			p := s.Players[0]
			stacks := *p.zone(zone)
			require.Len(t, stacks, 1, "a matching title must not open a new stack")
			if zone == ZoneAlert {
				assert.Empty(t, p.Zones.Reserve)
			} else {
				assert.Empty(t, p.Zones.Alert)
			}
			require.Len(t, stacks[0].Cards, 2)
			assert.Equal(t, "adama-admiral", stacks[0].Top().DefID)
			assert.Equal(t, existing, stacks[0].Cards[1].InstanceID)
		})
	}
}

func TestOverlayIgnoresOtherTitles(t *testing.T) {
	e, s := executionGame(t)
	addSupply(s, 0, 0, 1)
	addUnit(s, 0, ZoneAlert, "starbuck")
	idx := addToHand(s, 0, "adama-commander")

	s = apply(t, e, s, 0, Action{Type: ActionPlayCard, HandIndex: idx})
	assert.Len(t, s.Players[0].Zones.Alert, 1)
	require.Len(t, s.Players[0].Zones.Reserve, 1)
	assert.Equal(t, "adama-commander", s.Players[0].Zones.Reserve[0].Top().DefID)
}

func TestNonSingularUnitsDoNotOverlay(t *testing.T) {
	e, s := executionGame(t)
	addUnit(s, 0, ZoneAlert, "colonial-marine")
	idx := addToHand(s, 0, "colonial-marine")

	s = apply(t, e, s, 0, Action{Type: ActionPlayCard, HandIndex: idx})
	assert.Len(t, s.Players[0].Zones.Alert, 1)
	assert.Len(t, s.Players[0].Zones.Reserve, 1)
}

func TestUndefendedChallenge(t *testing.T) {
	e, s := executionGame(t)
	challenger := addUnit(s, 0, ZoneAlert, "starbuck")
	putOnDeck(s, 0, "dualla")
	s.Players[1].Influence = 10

	s = apply(t, e, s, 0, Action{Type: ActionChallenge, InstanceID: challenger, OpponentIndex: 1})
	require.NotNil(t, s.Challenge)
	assert.Equal(t, ChallengeChooseDefender, s.Challenge.Step)
	assert.Equal(t, 1, s.ActivePlayerIndex)

	s = apply(t, e, s, 1, Action{Type: ActionDefend})
	require.NotNil(t, s.Challenge)
	assert.Equal(t, ChallengeEffects, s.Challenge.Step)
	assert.Equal(t, 0, s.ActivePlayerIndex)

	s = apply(t, e, s, 0, Action{Type: ActionChallengePass})
	require.NotNil(t, s.Challenge)
	s = apply(t, e, s, 1, Action{Type: ActionChallengePass})

	assert.Nil(t, s.Challenge)
	assert.Equal(t, 5, s.Players[1].Influence)
	_, zone, ok := zoneOf(s, challenger)
	require.True(t, ok)
	assert.Equal(t, ZoneReserve, zone, "challenger is committed")
	assert.Equal(t, 1, s.ActivePlayerIndex)
	assert.Equal(t, rules.PhaseExecution, s.Phase)
}

func TestChallengeTieGoesToChallenger(t *testing.T) {
	e, s := executionGame(t)
	challenger := addUnit(s, 0, ZoneAlert, "starbuck")
	defender := addUnit(s, 1, ZoneAlert, "apollo")
	putOnDeck(s, 0, "deckhand")
	putOnDeck(s, 1, "deckhand")

	s = apply(t, e, s, 0, Action{Type: ActionChallenge, InstanceID: challenger, OpponentIndex: 1})
	s = apply(t, e, s, 1, Action{Type: ActionDefend, DefenderInstanceID: IntPtr(defender)})
	s = apply(t, e, s, 0, Action{Type: ActionChallengePass})
	s = apply(t, e, s, 1, Action{Type: ActionChallengePass})

	assert.Nil(t, s.Challenge)
	_, zone, ok := zoneOf(s, challenger)
	require.True(t, ok)
	assert.Equal(t, ZoneReserve, zone)
	_, _, ok = zoneOf(s, defender)
	assert.False(t, ok, "defender is defeated")
	assert.True(t, discardHas(s.Players[1], defender))
}

func TestDefenderWinsChallenge(t *testing.T) {
	e, s := executionGame(t)
	challenger := addUnit(s, 0, ZoneAlert, "starbuck")
	defender := addUnit(s, 1, ZoneAlert, "adama-admiral")
	putOnDeck(s, 0, "deckhand")
	putOnDeck(s, 1, "deckhand")

	s = apply(t, e, s, 0, Action{Type: ActionChallenge, InstanceID: challenger, OpponentIndex: 1})
	s = apply(t, e, s, 1, Action{Type: ActionDefend, DefenderInstanceID: IntPtr(defender)})
	s = apply(t, e, s, 0, Action{Type: ActionChallengePass})
	s = apply(t, e, s, 1, Action{Type: ActionChallengePass})

	assert.True(t, discardHas(s.Players[0], challenger))
	_, zone, ok := zoneOf(s, defender)
	require.True(t, ok)
	assert.Equal(t, ZoneReserve, zone)
}

func TestDefenderMustMatchType(t *testing.T) {
	e, s := executionGame(t)
	challenger := addUnit(s, 0, ZoneAlert, "starbuck")
	ship := addUnit(s, 1, ZoneAlert, "viper-mk2")

	s = apply(t, e, s, 0, Action{Type: ActionChallenge, InstanceID: challenger, OpponentIndex: 1})
	_, err := e.ApplyAction(s, 1, Action{Type: ActionDefend, DefenderInstanceID: IntPtr(ship)})
	assert.True(t, errors.Is(err, ErrIllegalAction))

	actions, err := e.ValidActions(s, 1)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionDefend, actions[0].Type)
	assert.Empty(t, actions[0].InstanceIDs)
}

func TestEventBuffExpiresWithChallenge(t *testing.T) {
	e, s := executionGame(t)
	challenger := addUnit(s, 0, ZoneAlert, "deckhand")
	defender := addUnit(s, 1, ZoneAlert, "colonial-marine")
	idx := addToHand(s, 0, "call-to-duty")
	putOnDeck(s, 0, "cylon-ambush")
	putOnDeck(s, 1, "baltar-vp")

	s = apply(t, e, s, 0, Action{Type: ActionChallenge, InstanceID: challenger, OpponentIndex: 1})
	s = apply(t, e, s, 1, Action{Type: ActionDefend, DefenderInstanceID: IntPtr(defender)})

	actions, err := e.ValidActions(s, 0)
	require.NoError(t, err)
	require.NotEmpty(t, actions)
	require.Equal(t, ActionPlayEventInChallenge, actions[0].Type)
	assert.Equal(t, []int{challenger}, actions[0].Targets[idx], "only the own challenge participant is a target")

	s = apply(t, e, s, 0, Action{Type: ActionPlayEventInChallenge, HandIndex: idx, TargetInstanceID: IntPtr(challenger)})
	require.Len(t, s.Effects, 1)
	assert.Equal(t, ExpiryChallenge, s.Effects[0].Expiry)
	power, err := e.powerOf(s, challenger)
	require.NoError(t, err)
	assert.Equal(t, 3, power)
	assert.Equal(t, 1, s.ActivePlayerIndex)

	s = apply(t, e, s, 1, Action{Type: ActionChallengePass})
	s = apply(t, e, s, 0, Action{Type: ActionChallengePass})

	// deckhand 1 + 2 + mystic 3 beats marine 2 + mystic 3
	assert.Nil(t, s.Challenge)
	assert.Empty(t, s.Effects)
	assert.True(t, discardHas(s.Players[1], defender))
}

func TestBaseAbilityBuffLastsForPhase(t *testing.T) {
	e, s := executionGame(t)
	unit := addUnit(s, 0, ZoneAlert, "colonial-marine")
	base := s.Players[0].Zones.ResourceStacks[0].TopCard.InstanceID

	s = apply(t, e, s, 0, Action{Type: ActionPlayAbility, SourceInstanceID: base, TargetInstanceID: IntPtr(unit)})
	assert.True(t, s.Players[0].Zones.ResourceStacks[0].Exhausted)
	require.Len(t, s.Effects, 1)
	assert.Equal(t, ExpiryPhase, s.Effects[0].Expiry)
	power, err := e.powerOf(s, unit)
	require.NoError(t, err)
	assert.Equal(t, 3, power)

	s = apply(t, e, s, 1, Action{Type: ActionPass})
	s = apply(t, e, s, 0, Action{Type: ActionPass})
	assert.NotEqual(t, rules.PhaseExecution, s.Phase)
	assert.Empty(t, s.Effects)
}

func TestUnitAbilityCommitsUnit(t *testing.T) {
	e, s := executionGame(t)
	baltar := addUnit(s, 0, ZoneAlert, "baltar-vp")
	before := s.Players[1].Influence

	s = apply(t, e, s, 0, Action{Type: ActionPlayAbility, SourceInstanceID: baltar})
	assert.Equal(t, before-1, s.Players[1].Influence)
	_, zone, ok := zoneOf(s, baltar)
	require.True(t, ok)
	assert.Equal(t, ZoneReserve, zone)

	_, err := e.ApplyAction(s, 1, Action{Type: ActionPlayAbility, SourceInstanceID: baltar})
	assert.True(t, errors.Is(err, ErrIllegalAction))
}

func TestResolveMission(t *testing.T) {
	e, s := executionGame(t)
	mission := addUnit(s, 0, ZoneAlert, "press-conference")
	roslin := addUnit(s, 0, ZoneAlert, "roslin-president")
	before := s.Players[0].Influence

	actions, err := e.ValidActions(s, 0)
	require.NoError(t, err)
	var found bool
	for _, va := range actions {
		if va.Type == ActionResolveMission {
			found = true
			assert.Equal(t, []int{mission}, va.InstanceIDs)
		}
	}
	require.True(t, found)

	s = apply(t, e, s, 0, Action{Type: ActionResolveMission, InstanceID: mission})
	assert.Equal(t, before+2, s.Players[0].Influence)
	assert.True(t, s.Players[0].HasResolvedMission)
	assert.True(t, discardHas(s.Players[0], mission))
	_, zone, ok := zoneOf(s, roslin)
	require.True(t, ok)
	assert.Equal(t, ZoneReserve, zone)
}

func TestMissionRequirementNotMet(t *testing.T) {
	e, s := executionGame(t)
	mission := addUnit(s, 0, ZoneAlert, "combat-air-patrol")
	addUnit(s, 0, ZoneAlert, "starbuck")

	_, err := e.ApplyAction(s, 0, Action{Type: ActionResolveMission, InstanceID: mission})
	assert.True(t, errors.Is(err, ErrIllegalAction))
}

func TestExecutionEndsAfterBothPass(t *testing.T) {
	e, s := executionGame(t)

	s = apply(t, e, s, 0, Action{Type: ActionPass})
	assert.Equal(t, rules.PhaseExecution, s.Phase)
	assert.Equal(t, 1, s.ActivePlayerIndex)

	idx := addToHand(s, 1, "deckhand")
	s.Players[1].Zones.ResourceStacks = append(s.Players[1].Zones.ResourceStacks,
		ResourceStack{TopCard: s.newInstance("viper-mk2", true)})
	s = apply(t, e, s, 1, Action{Type: ActionPlayCard, HandIndex: idx})
	assert.Equal(t, 0, s.Players[0].ConsecutivePasses, "any action resets the pass counters")

	s = apply(t, e, s, 0, Action{Type: ActionPass})
	assert.Equal(t, rules.PhaseExecution, s.Phase)
	s = apply(t, e, s, 1, Action{Type: ActionPass})
	assert.NotEqual(t, rules.PhaseExecution, s.Phase)
}

func TestCylonPhaseSkipped(t *testing.T) {
	e, s := executionGame(t)
	addUnit(s, 0, ZoneAlert, "boomer")
	addUnit(s, 0, ZoneReserve, "tigh-xo")
	addUnit(s, 1, ZoneReserve, "captured-raider")
	deck0, deck1 := len(s.Players[0].Deck), len(s.Players[1].Deck)

	threat, err := e.ThreatLevel(s)
	require.NoError(t, err)
	require.Equal(t, 5, threat)

	s = apply(t, e, s, 0, Action{Type: ActionPass})
	s = apply(t, e, s, 1, Action{Type: ActionPass})

	assert.Contains(t, s.Log, "No Cylon attack this turn.")
	assert.Empty(t, s.CylonThreats)
	assert.Equal(t, 2, s.Turn)
	assert.Equal(t, rules.PhaseReady, s.Phase)
	assert.Equal(t, rules.StepDraw, s.ReadyStep)
	assert.Equal(t, 1, s.FirstPlayerIndex, "first player alternates")
	assert.Equal(t, deck0, len(s.Players[0].Deck))
	assert.Equal(t, deck1, len(s.Players[1].Deck))
	assert.Len(t, s.Players[0].Zones.Alert, 2, "reserve units ready at the start of the turn")
}

func cylonAttackGame(t *testing.T) (*Engine, *GameState) {
	t.Helper()
	e, s := executionGame(t)
	addUnit(s, 0, ZoneReserve, "boomer")
	addUnit(s, 0, ZoneReserve, "tigh-xo")
	addUnit(s, 1, ZoneReserve, "captured-raider")
	addUnit(s, 1, ZoneReserve, "captured-raider")
	addUnit(s, 1, ZoneReserve, "boomer")

	putOnDeck(s, 0, "starbuck")
	putOnDeck(s, 0, "boomer")
	putOnDeck(s, 1, "dualla")
	putOnDeck(s, 1, "deckhand")

	s = apply(t, e, s, 0, Action{Type: ActionPass})
	s = apply(t, e, s, 1, Action{Type: ActionPass})
	return e, s
}

func TestCylonAttackRevealsThreats(t *testing.T) {
	_, s := cylonAttackGame(t)

	require.Equal(t, rules.PhaseCylon, s.Phase)
	require.Len(t, s.CylonThreats, 1, "zero-threat reveals are discarded")
	assert.Equal(t, "boomer", s.CylonThreats[0].Card.DefID)
	assert.Equal(t, 2, s.CylonThreats[0].Power)
	assert.Equal(t, 0, s.CylonThreats[0].Owner)
	assert.Equal(t, "deckhand", s.Players[1].Discard[len(s.Players[1].Discard)-1].DefID)
	assert.Equal(t, 0, s.ActivePlayerIndex)
}

func TestCylonPassLosesInfluence(t *testing.T) {
	e, s := cylonAttackGame(t)
	threat := s.CylonThreats[0].Card.InstanceID
	i0, i1 := s.Players[0].Influence, s.Players[1].Influence

	s = apply(t, e, s, 0, Action{Type: ActionPassCylon})
	assert.Equal(t, rules.PhaseCylon, s.Phase)
	s = apply(t, e, s, 1, Action{Type: ActionPassCylon})

	assert.Equal(t, i0-1, s.Players[0].Influence)
	assert.Equal(t, i1-1, s.Players[1].Influence)
	assert.Empty(t, s.CylonThreats)
	assert.True(t, discardHas(s.Players[0], threat), "remaining threats go to their owner's discard")
	assert.Equal(t, 2, s.Turn)
}

func TestCylonChallengeWin(t *testing.T) {
	e, s := cylonAttackGame(t)
	admiral := addUnit(s, 0, ZoneAlert, "adama-admiral")
	threat := s.CylonThreats[0].Card.InstanceID
	before := s.Players[0].Influence

	s = apply(t, e, s, 0, Action{Type: ActionChallengeCylon, InstanceID: admiral, ThreatIndex: 0})
	require.NotNil(t, s.Challenge)
	assert.True(t, s.Challenge.IsCylon)
	assert.Equal(t, ChallengeEffects, s.Challenge.Step)
	assert.Equal(t, 1, s.Challenge.DefenderPlayer)

	s = apply(t, e, s, 0, Action{Type: ActionChallengePass})
	s = apply(t, e, s, 1, Action{Type: ActionChallengePass})

	// admiral 4 + starbuck 1 against threat 2 + dualla 2
	assert.Nil(t, s.Challenge)
	assert.Equal(t, before+2, s.Players[0].Influence)
	assert.True(t, discardHas(s.Players[0], threat))
	assert.Empty(t, s.CylonThreats)
	assert.Equal(t, 2, s.Turn, "the phase ends once every threat is gone")
}

func TestCylonChallengeLoss(t *testing.T) {
	e, s := cylonAttackGame(t)
	deckhand := addUnit(s, 0, ZoneAlert, "deckhand")

	s = apply(t, e, s, 0, Action{Type: ActionChallengeCylon, InstanceID: deckhand, ThreatIndex: 0})
	s = apply(t, e, s, 0, Action{Type: ActionChallengePass})
	s = apply(t, e, s, 1, Action{Type: ActionChallengePass})

	// deckhand 1 + starbuck 1 against threat 2 + dualla 2
	assert.True(t, discardHas(s.Players[0], deckhand))
	require.Len(t, s.CylonThreats, 1, "the threat persists")
	assert.Equal(t, rules.PhaseCylon, s.Phase)
	assert.Equal(t, 1, s.ActivePlayerIndex)
	assert.Equal(t, 0, s.Players[0].ConsecutivePasses)
}

func TestVictory(t *testing.T) {
	e, s := executionGame(t)
	s.Players[1].Influence = 21

	s = apply(t, e, s, 0, Action{Type: ActionPass})
	require.NotNil(t, s.Winner)
	assert.Equal(t, 1, *s.Winner)
	assert.Equal(t, rules.PhaseGameOver, s.Phase)

	_, err := e.ApplyAction(s, 1, Action{Type: ActionPass})
	assert.True(t, errors.Is(err, ErrGameOver))

	actions, err := e.ValidActions(s, 0)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestVictoryPrefersWinningInfluence(t *testing.T) {
	_, s := executionGame(t)
	s.Players[0].Influence = 0
	s.Players[1].Influence = 20

	out := CheckVictory(s)
	require.NotNil(t, out.Winner)
	assert.Equal(t, 1, *out.Winner)
	assert.Nil(t, s.Winner, "input is untouched")
}

func TestLosingAllInfluence(t *testing.T) {
	e, s := executionGame(t)
	baltar := addUnit(s, 0, ZoneAlert, "baltar-vp")
	s.Players[1].Influence = 1

	s = apply(t, e, s, 0, Action{Type: ActionPlayAbility, SourceInstanceID: baltar})
	require.NotNil(t, s.Winner)
	assert.Equal(t, 0, *s.Winner)
}

func TestApplyActionLeavesInputUntouched(t *testing.T) {
	e, s := executionGame(t)
	challenger := addUnit(s, 0, ZoneAlert, "starbuck")
	before, err := Checksum(s)
	require.NoError(t, err)

	next := apply(t, e, s, 0, Action{Type: ActionChallenge, InstanceID: challenger, OpponentIndex: 1})
	require.NotSame(t, s, next)

	after, err := Checksum(s)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStaleReferenceIsIgnored(t *testing.T) {
	e, s := executionGame(t)
	logLen := len(s.Log)

	next, err := e.ApplyAction(s, 0, Action{Type: ActionChallenge, InstanceID: 99999, OpponentIndex: 1})
	require.NoError(t, err)
	assert.Same(t, s, next)
	assert.Len(t, next.Log, logLen)
}

func TestOutOfTurnAction(t *testing.T) {
	e, s := executionGame(t)

	_, err := e.ApplyAction(s, 1, Action{Type: ActionPass})
	assert.True(t, errors.Is(err, ErrIllegalAction))

	_, err = e.ApplyAction(s, 0, Action{Type: ActionDrawCards})
	assert.True(t, errors.Is(err, ErrIllegalAction))
}

func TestEmptyDeckReshufflesDiscard(t *testing.T) {
	_, s := executionGame(t)
	p := s.Players[0]
	p.Discard = append(p.Discard, p.Deck...)
	p.Deck = nil
	total := len(p.Discard)

	n := s.draw(0, 3)
	assert.Equal(t, 3, n)
	assert.Len(t, p.Hand, 3)
	assert.Len(t, p.Deck, total-3)
	assert.Empty(t, p.Discard)

	p.Deck, p.Discard = nil, nil
	assert.Equal(t, 0, s.draw(0, 2))
}

func TestMysticRevealWithNoCards(t *testing.T) {
	e, s := executionGame(t)
	s.Players[0].Deck, s.Players[0].Discard = nil, nil
	value, err := e.revealMystic(s, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, *value)
}

func TestUnknownDefinitionAbortsAction(t *testing.T) {
	t.Run("mystic reveal", func(t *testing.T) {
		e, s := executionGame(t)
		challenger := addUnit(s, 0, ZoneAlert, "starbuck")
		putOnDeck(s, 0, "no-such-card")
		s = apply(t, e, s, 0, Action{Type: ActionChallenge, InstanceID: challenger, OpponentIndex: 1})
		s = apply(t, e, s, 1, Action{Type: ActionDefend})
		s = apply(t, e, s, 0, Action{Type: ActionChallengePass})
		influence, logLen := s.Players[1].Influence, len(s.Log)

		next, err := e.ApplyAction(s, 1, Action{Type: ActionChallengePass})
		assert.True(t, errors.Is(err, cards.ErrUnknownCard))
		assert.Nil(t, next)
		assert.Equal(t, influence, s.Players[1].Influence)
		assert.Len(t, s.Log, logLen)
		assert.Equal(t, "no-such-card", s.Players[0].Deck[0].DefID)
	})

	t.Run("threat level", func(t *testing.T) {
		e, s := executionGame(t)
		addUnit(s, 1, ZoneReserve, "no-such-card")
		s = apply(t, e, s, 0, Action{Type: ActionPass})

		_, err := e.ApplyAction(s, 1, Action{Type: ActionPass})
		assert.True(t, errors.Is(err, cards.ErrUnknownCard))
		assert.Equal(t, rules.PhaseExecution, s.Phase)
	})

	t.Run("threat reveal", func(t *testing.T) {
		e, s := executionGame(t)
		addUnit(s, 0, ZoneReserve, "boomer")
		addUnit(s, 0, ZoneReserve, "tigh-xo")
		addUnit(s, 1, ZoneReserve, "captured-raider")
		addUnit(s, 1, ZoneReserve, "captured-raider")
		addUnit(s, 1, ZoneReserve, "boomer")
		putOnDeck(s, 0, "no-such-card")
		s = apply(t, e, s, 0, Action{Type: ActionPass})

		_, err := e.ApplyAction(s, 1, Action{Type: ActionPass})
		assert.True(t, errors.Is(err, cards.ErrUnknownCard))
		assert.Empty(t, s.CylonThreats)
	})
}

// TestLegalActionsNeverFail plays random legal actions and checks that none
// is rejected and that no card leaves the game.
func TestLegalActionsNeverFail(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		e, s := newTestGame(t, seed)
		rng := rand.New(rand.NewSource(seed))
		cardCount := s.CardCount()

		for step := 0; step < 1500 && s.Phase != rules.PhaseGameOver; step++ {
			player, options := pickActor(t, e, s)
			require.NotEmpty(t, options, "seed %d step %d: nobody can act in %s", seed, step, s.Phase)

			a := options[rng.Intn(len(options))]
			next, err := e.ApplyAction(s, player, a)
			require.NoError(t, err, "seed %d step %d: %+v", seed, step, a)
			require.GreaterOrEqual(t, next.CardCount(), cardCount)
			s = next
		}
	}
}

func pickActor(t *testing.T, e *Engine, s *GameState) (int, []Action) {
	t.Helper()
	for _, player := range []int{s.ActivePlayerIndex, Opponent(s.ActivePlayerIndex)} {
		valid, err := e.ValidActions(s, player)
		require.NoError(t, err)
		var options []Action
		for _, va := range valid {
			options = append(options, va.Actions()...)
		}
		if len(options) > 0 {
			return player, options
		}
	}
	return 0, nil
}
