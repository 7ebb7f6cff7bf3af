package cards

import (
	"errors"
	"strings"
	"testing"

	"github.com/caprica/fleet-server/internal/game/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	galactica, err := reg.Base("galactica")
	require.NoError(t, err)
	assert.Equal(t, 4, galactica.Power)
	assert.Equal(t, resource.Security, galactica.Resource)

	colonialOne, err := reg.Base("colonial-one")
	require.NoError(t, err)
	assert.Equal(t, 3, colonialOne.Power)

	adama, err := reg.Card("adama-commander")
	require.NoError(t, err)
	assert.Equal(t, "William Adama, Commander", adama.Name())
	assert.True(t, adama.IsSingular())
	assert.Equal(t, resource.Cost{resource.Security: 2}, adama.Cost)
	require.NotNil(t, adama.Ability)
	assert.Equal(t, TriggerCommit, adama.Ability.Trigger)
	assert.Equal(t, TargetOwn, adama.Ability.Target)

	patrol, err := reg.Card("combat-air-patrol")
	require.NoError(t, err)
	require.NotNil(t, patrol.Resolve)
	assert.Equal(t, Requirement{Trait: "Pilot", Count: 2}, *patrol.Resolve)
}

func TestRegistryUnknownLookups(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	_, err = reg.Card("no-such-card")
	assert.True(t, errors.Is(err, ErrUnknownCard))

	_, err = reg.Base("no-such-base")
	assert.True(t, errors.Is(err, ErrUnknownBase))
}

func TestCardName(t *testing.T) {
	assert.Equal(t, "Kara Thrace, Starbuck", CardName("Kara Thrace", "Starbuck"))
	assert.Equal(t, "Raptor", CardName("Raptor", ""))
	assert.Equal(t, "Starbuck", CardName("", "Starbuck"))

	marine := &CardDef{Title: "Colonial Marine"}
	assert.False(t, marine.IsSingular())
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]*CardDef{
		{ID: "a", Type: TypeEvent},
		{ID: "a", Type: TypeEvent},
	}, nil)
	assert.Error(t, err)

	_, err = NewRegistry([]*CardDef{{ID: "a", Type: TypeEvent}}, []*BaseCardDef{{ID: "a"}})
	assert.Error(t, err)
}

func TestLoadRejectsBadData(t *testing.T) {
	_, err := Load(strings.NewReader("cards: []\n"))
	assert.Error(t, err, "bases are required")

	bad := `
bases:
  - id: b
    title: B
    resource: security
cards:
  - id: c
    title: C
    type: event
    cost: "{2Q}"
`
	_, err = Load(strings.NewReader(bad))
	assert.Error(t, err)

	unknownField := `
bases:
  - id: b
    title: B
    resource: security
    colour: red
`
	_, err = Load(strings.NewReader(unknownField))
	assert.Error(t, err)
}

func TestRegistryOrder(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	bases := reg.Bases()
	require.NotEmpty(t, bases)
	assert.Equal(t, "galactica", bases[0].ID)

	all := reg.Cards()
	require.NotEmpty(t, all)
	assert.Equal(t, "adama-commander", all[0].ID)
}
