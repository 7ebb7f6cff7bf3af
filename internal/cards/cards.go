// Package cards holds the static card and base definitions used by the game
// engine. Definitions are immutable once loaded into a Registry.
package cards

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caprica/fleet-server/internal/game/resource"
)

var (
	// ErrUnknownCard is returned when a card id has no definition.
	ErrUnknownCard = errors.New("unknown card definition")
	// ErrUnknownBase is returned when a base id has no definition.
	ErrUnknownBase = errors.New("unknown base definition")
)

// CardType is the printed type of a card.
type CardType string

const (
	TypePersonnel CardType = "personnel"
	TypeShip      CardType = "ship"
	TypeEvent     CardType = "event"
	TypeMission   CardType = "mission"
)

// IsUnit reports whether cards of this type fight in challenges.
func (t CardType) IsUnit() bool {
	return t == TypePersonnel || t == TypeShip
}

// Valid reports whether t is a known card type.
func (t CardType) Valid() bool {
	switch t {
	case TypePersonnel, TypeShip, TypeEvent, TypeMission:
		return true
	}
	return false
}

// Trigger describes how an ability is used.
type Trigger string

const (
	// TriggerPlay resolves when the card is played (events).
	TriggerPlay Trigger = "play"
	// TriggerCommit is activated by committing the unit from alert to reserve.
	TriggerCommit Trigger = "commit"
	// TriggerExhaust is activated by exhausting the base's resource stack.
	TriggerExhaust Trigger = "exhaust"
	// TriggerResolve resolves when a mission is resolved.
	TriggerResolve Trigger = "resolve"
)

// TargetFilter restricts which units an ability may target.
type TargetFilter string

const (
	TargetAnyUnit   TargetFilter = "unit"
	TargetOwn       TargetFilter = "own"
	TargetOpponent  TargetFilter = "opponent"
	TargetPersonnel TargetFilter = "personnel"
	TargetShip      TargetFilter = "ship"
)

// Ability identifiers understood by the engine. Anything else resolves as a
// logged no-op.
const (
	AbilityInfluenceDrain = "influence_drain"
	AbilityInfluenceGain  = "influence_gain"
	AbilityPowerBuff      = "power_buff"
	AbilityReadyReserve   = "ready_reserve"
	AbilityDrawCards      = "draw_cards"
)

// Ability is the structured form of a card's rules text.
type Ability struct {
	ID             string
	Value          int
	Trigger        Trigger
	RequiresTarget bool
	Target         TargetFilter
	Text           string
}

// Requirement is what a mission needs to be resolved: Count alert units
// carrying Trait (any unit when Trait is empty).
type Requirement struct {
	Trait string
	Count int
}

// CardDef is the immutable template of a deck card.
type CardDef struct {
	ID          string
	Title       string
	Subtitle    string
	Type        CardType
	Cost        resource.Cost
	Power       int
	MysticValue int
	CylonThreat int
	Resource    resource.Type
	Traits      []string
	Ability     *Ability
	Resolve     *Requirement
	Text        string
}

// Name returns the card identity used for copy limits and overlays:
// "Title, Subtitle" when both exist, otherwise whichever is present.
func (c *CardDef) Name() string {
	return CardName(c.Title, c.Subtitle)
}

// CardName builds a card identity from its title and subtitle.
func CardName(title, subtitle string) string {
	title = strings.TrimSpace(title)
	subtitle = strings.TrimSpace(subtitle)
	switch {
	case title != "" && subtitle != "":
		return title + ", " + subtitle
	case title != "":
		return title
	default:
		return subtitle
	}
}

// IsSingular reports whether the card has both a title and a subtitle.
func (c *CardDef) IsSingular() bool {
	return strings.TrimSpace(c.Title) != "" && strings.TrimSpace(c.Subtitle) != ""
}

// HasTrait reports whether the card carries trait (case-insensitive).
func (c *CardDef) HasTrait(trait string) bool {
	for _, t := range c.Traits {
		if strings.EqualFold(t, trait) {
			return true
		}
	}
	return false
}

// AbilityID returns the ability id or "" when the card has none.
func (c *CardDef) AbilityID() string {
	if c.Ability == nil {
		return ""
	}
	return c.Ability.ID
}

// BaseCardDef is the immutable template of a base. A base starts in play as
// a player's first resource stack.
type BaseCardDef struct {
	ID        string
	Title     string
	Power     int
	Resource  resource.Type
	HandSize  int
	Influence int
	Ability   *Ability
	Text      string
}

// Registry is a read-only lookup of card and base definitions.
type Registry struct {
	cards     map[string]*CardDef
	bases     map[string]*BaseCardDef
	cardOrder []string
	baseOrder []string
}

// NewRegistry builds a registry, rejecting duplicate or empty ids.
func NewRegistry(cardDefs []*CardDef, baseDefs []*BaseCardDef) (*Registry, error) {
	r := &Registry{
		cards:     make(map[string]*CardDef, len(cardDefs)),
		bases:     make(map[string]*BaseCardDef, len(baseDefs)),
		cardOrder: make([]string, 0, len(cardDefs)),
		baseOrder: make([]string, 0, len(baseDefs)),
	}

	for _, c := range cardDefs {
		if c == nil || c.ID == "" {
			return nil, fmt.Errorf("card definition missing id")
		}
		if _, exists := r.cards[c.ID]; exists {
			return nil, fmt.Errorf("duplicate card id %q", c.ID)
		}
		if !c.Type.Valid() {
			return nil, fmt.Errorf("card %q: invalid type %q", c.ID, c.Type)
		}
		if c.Cost == nil {
			c.Cost = resource.Cost{}
		}
		r.cards[c.ID] = c
		r.cardOrder = append(r.cardOrder, c.ID)
	}

	for _, b := range baseDefs {
		if b == nil || b.ID == "" {
			return nil, fmt.Errorf("base definition missing id")
		}
		if _, exists := r.bases[b.ID]; exists {
			return nil, fmt.Errorf("duplicate base id %q", b.ID)
		}
		if _, clash := r.cards[b.ID]; clash {
			return nil, fmt.Errorf("base id %q collides with a card id", b.ID)
		}
		r.bases[b.ID] = b
		r.baseOrder = append(r.baseOrder, b.ID)
	}

	return r, nil
}

// Card returns the definition for id.
func (r *Registry) Card(id string) (*CardDef, error) {
	if c, ok := r.cards[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCard, id)
}

// Base returns the base definition for id.
func (r *Registry) Base(id string) (*BaseCardDef, error) {
	if b, ok := r.bases[id]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBase, id)
}

// HasCard reports whether id resolves to a card.
func (r *Registry) HasCard(id string) bool {
	_, ok := r.cards[id]
	return ok
}

// IsBase reports whether id resolves to a base.
func (r *Registry) IsBase(id string) bool {
	_, ok := r.bases[id]
	return ok
}

// Cards returns every card definition in load order.
func (r *Registry) Cards() []*CardDef {
	out := make([]*CardDef, 0, len(r.cardOrder))
	for _, id := range r.cardOrder {
		out = append(out, r.cards[id])
	}
	return out
}

// Bases returns every base definition in load order.
func (r *Registry) Bases() []*BaseCardDef {
	out := make([]*BaseCardDef, 0, len(r.baseOrder))
	for _, id := range r.baseOrder {
		out = append(out, r.bases[id])
	}
	return out
}
