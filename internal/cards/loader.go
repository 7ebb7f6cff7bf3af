package cards

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caprica/fleet-server/internal/game/resource"
	"gopkg.in/yaml.v3"
)

//go:embed data/default.yaml
var defaultData []byte

type abilityEntry struct {
	ID             string `yaml:"id"`
	Value          int    `yaml:"value"`
	Trigger        string `yaml:"trigger"`
	RequiresTarget bool   `yaml:"requires_target"`
	Target         string `yaml:"target"`
	Text           string `yaml:"text"`
}

type requirementEntry struct {
	Trait string `yaml:"trait"`
	Count int    `yaml:"count"`
}

type cardEntry struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Subtitle    string            `yaml:"subtitle"`
	Type        string            `yaml:"type"`
	Cost        string            `yaml:"cost"`
	Power       int               `yaml:"power"`
	Mystic      int               `yaml:"mystic"`
	CylonThreat int               `yaml:"cylon_threat"`
	Resource    string            `yaml:"resource"`
	Traits      []string          `yaml:"traits"`
	Ability     *abilityEntry     `yaml:"ability"`
	Resolve     *requirementEntry `yaml:"resolve"`
	Text        string            `yaml:"text"`
}

type baseEntry struct {
	ID        string        `yaml:"id"`
	Title     string        `yaml:"title"`
	Power     int           `yaml:"power"`
	Resource  string        `yaml:"resource"`
	HandSize  int           `yaml:"hand_size"`
	Influence int           `yaml:"influence"`
	Ability   *abilityEntry `yaml:"ability"`
	Text      string        `yaml:"text"`
}

type rawData struct {
	Bases []baseEntry `yaml:"bases"`
	Cards []cardEntry `yaml:"cards"`
}

// Default returns a registry built from the embedded card set.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultData))
}

// LoadFile reads a YAML card set from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open card data %s: %w", path, err)
	}
	defer f.Close()

	reg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("card data %s: %w", path, err)
	}
	return reg, nil
}

// Load decodes a YAML card set with top-level `bases` and `cards` lists.
func Load(r io.Reader) (*Registry, error) {
	var raw rawData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse card data: %w", err)
	}

	if len(raw.Bases) == 0 {
		return nil, fmt.Errorf("card data has no bases")
	}

	cardDefs := make([]*CardDef, 0, len(raw.Cards))
	for _, entry := range raw.Cards {
		def, err := entry.toDef()
		if err != nil {
			return nil, err
		}
		cardDefs = append(cardDefs, def)
	}

	baseDefs := make([]*BaseCardDef, 0, len(raw.Bases))
	for _, entry := range raw.Bases {
		def, err := entry.toDef()
		if err != nil {
			return nil, err
		}
		baseDefs = append(baseDefs, def)
	}

	return NewRegistry(cardDefs, baseDefs)
}

func (e cardEntry) toDef() (*CardDef, error) {
	cost, err := resource.ParseCost(e.Cost)
	if err != nil {
		return nil, fmt.Errorf("card %q: %w", e.ID, err)
	}
	res, err := resource.ParseType(e.Resource)
	if err != nil {
		return nil, fmt.Errorf("card %q: %w", e.ID, err)
	}
	ability, err := e.Ability.toAbility()
	if err != nil {
		return nil, fmt.Errorf("card %q: %w", e.ID, err)
	}

	def := &CardDef{
		ID:          strings.TrimSpace(e.ID),
		Title:       e.Title,
		Subtitle:    e.Subtitle,
		Type:        CardType(strings.ToLower(e.Type)),
		Cost:        cost,
		Power:       e.Power,
		MysticValue: e.Mystic,
		CylonThreat: e.CylonThreat,
		Resource:    res,
		Traits:      e.Traits,
		Ability:     ability,
		Text:        e.Text,
	}
	if e.Resolve != nil {
		if def.Type != TypeMission {
			return nil, fmt.Errorf("card %q: only missions carry a resolve requirement", e.ID)
		}
		def.Resolve = &Requirement{Trait: e.Resolve.Trait, Count: e.Resolve.Count}
	}
	return def, nil
}

func (e baseEntry) toDef() (*BaseCardDef, error) {
	res, err := resource.ParseType(e.Resource)
	if err != nil {
		return nil, fmt.Errorf("base %q: %w", e.ID, err)
	}
	if res == "" {
		return nil, fmt.Errorf("base %q: resource is required", e.ID)
	}
	ability, err := e.Ability.toAbility()
	if err != nil {
		return nil, fmt.Errorf("base %q: %w", e.ID, err)
	}
	return &BaseCardDef{
		ID:        strings.TrimSpace(e.ID),
		Title:     e.Title,
		Power:     e.Power,
		Resource:  res,
		HandSize:  e.HandSize,
		Influence: e.Influence,
		Ability:   ability,
		Text:      e.Text,
	}, nil
}

func (a *abilityEntry) toAbility() (*Ability, error) {
	if a == nil {
		return nil, nil
	}
	trigger := Trigger(strings.ToLower(a.Trigger))
	switch trigger {
	case TriggerPlay, TriggerCommit, TriggerExhaust, TriggerResolve:
	case "":
		trigger = TriggerPlay
	default:
		return nil, fmt.Errorf("unknown ability trigger %q", a.Trigger)
	}
	target := TargetFilter(strings.ToLower(a.Target))
	if a.RequiresTarget && target == "" {
		target = TargetAnyUnit
	}
	return &Ability{
		ID:             a.ID,
		Value:          a.Value,
		Trigger:        trigger,
		RequiresTarget: a.RequiresTarget,
		Target:         target,
		Text:           a.Text,
	}, nil
}
