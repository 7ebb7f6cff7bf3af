package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumDeterministic(t *testing.T) {
	_, s := newTestGame(t, 21)

	first, err := Checksum(s)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Checksum(s.Clone())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestChecksumDetectsChanges(t *testing.T) {
	_, s := newTestGame(t, 21)
	before, err := Checksum(s)
	require.NoError(t, err)

	changed := s.Clone()
	changed.Players[1].Influence--
	after, err := Checksum(changed)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestChecksumNilState(t *testing.T) {
	_, err := Checksum(nil)
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	_, s := executionGame(t)
	id := addUnit(s, 0, ZoneAlert, "starbuck")
	s.Challenge = &ChallengeState{ChallengerInstanceID: id, DefenderInstanceID: IntPtr(3)}
	s.Effects = []TimedEffect{{TargetInstanceID: id, PowerDelta: 1, Expiry: ExpiryPhase}}

	c := s.Clone()
	c.Players[0].Zones.Alert[0].Cards[0].DefID = "apollo"
	c.Players[0].Zones.ResourceStacks[0].Exhausted = true
	*c.Challenge.DefenderInstanceID = 9
	c.Effects[0].PowerDelta = 5

	assert.Equal(t, "starbuck", s.Players[0].Zones.Alert[0].Cards[0].DefID)
	assert.False(t, s.Players[0].Zones.ResourceStacks[0].Exhausted)
	assert.Equal(t, 3, *s.Challenge.DefenderInstanceID)
	assert.Equal(t, 1, s.Effects[0].PowerDelta)
}
