package game

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerViewHidesOpponent(t *testing.T) {
	e, s := newTestGame(t, 11)
	addSupply(s, 1, 0, 2)

	view, err := e.PlayerView(s, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, view.Viewer)
	assert.Equal(t, "Alice", view.You.Name)
	assert.Len(t, view.You.Hand, 8)
	assert.Equal(t, 52, view.You.DeckCount)

	assert.Equal(t, "Bob", view.Opponent.Name)
	assert.Empty(t, view.Opponent.Hand)
	assert.Empty(t, view.Opponent.Discard)
	assert.Equal(t, 8, view.Opponent.HandCount)
	assert.Equal(t, 52, view.Opponent.DeckCount)

	supply := view.Opponent.Zones.ResourceStacks[0].SupplyCards
	require.Len(t, supply, 2)
	for _, c := range supply {
		assert.Empty(t, c.DefID)
		assert.Zero(t, c.InstanceID)
	}
	assert.Equal(t, "colonial-one", view.Opponent.Zones.ResourceStacks[0].TopCard.DefID)
}

func TestPlayerViewDoesNotLeakHiddenCards(t *testing.T) {
	e, s := newTestGame(t, 12)

	view, err := e.PlayerView(s, 1)
	require.NoError(t, err)
	data, err := json.Marshal(view)
	require.NoError(t, err)
	encoded := string(data)

	for _, c := range s.Players[0].Hand {
		assert.False(t, strings.Contains(encoded, `"instanceId":`+itoa(c.InstanceID)+`,`),
			"opponent hand card %d leaked", c.InstanceID)
	}
	for _, c := range s.Players[0].Deck {
		assert.False(t, strings.Contains(encoded, `"instanceId":`+itoa(c.InstanceID)+`,`),
			"opponent deck card %d leaked", c.InstanceID)
	}
}

func TestPlayerViewOwnSupplyVisible(t *testing.T) {
	e, s := newTestGame(t, 13)
	addSupply(s, 0, 0, 1)

	view, err := e.PlayerView(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "deckhand", view.You.Zones.ResourceStacks[0].SupplyCards[0].DefID)
}

func TestPlayerViewDoesNotAliasState(t *testing.T) {
	e, s := newTestGame(t, 14)

	view, err := e.PlayerView(s, 0)
	require.NoError(t, err)
	view.You.Hand[0].DefID = "changed"
	assert.NotEqual(t, "changed", s.Players[0].Hand[0].DefID)
}

func TestPlayerViewRejectsUnknownViewer(t *testing.T) {
	e, s := newTestGame(t, 15)
	_, err := e.PlayerView(s, 2)
	assert.Error(t, err)
}

func itoa(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}
