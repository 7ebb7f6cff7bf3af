package ai

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/deck"
)

// unitSlots is roughly how many of the 60 cards are units.
const unitSlots = 34

type scoredCard struct {
	def   *cards.CardDef
	score float64
}

// scoreCard rates a card for a deck built around a base producing base.
func scoreCard(def *cards.CardDef, base *cards.BaseCardDef, rng *rand.Rand) float64 {
	score := 0.0
	if def.Resource == base.Resource {
		score += 10
	}
	if def.Cost.OnlyType(base.Resource) {
		score += 5
	}
	score += float64(def.Power)
	score -= float64(def.Cost.Total())
	score += 0.5 * float64(def.MysticValue)
	score += rng.Float64()
	return score
}

// BuildDeck assembles a legal deck for the computer player around a random
// base. Copy limits are counted by card name.
func BuildDeck(reg *cards.Registry, rng *rand.Rand) (deck.Submission, error) {
	bases := reg.Bases()
	if len(bases) == 0 {
		return deck.Submission{}, fmt.Errorf("registry has no bases")
	}
	return BuildDeckForBase(reg, bases[rng.Intn(len(bases))], rng)
}

// BuildDeckForBase assembles a legal deck around the given base.
func BuildDeckForBase(reg *cards.Registry, base *cards.BaseCardDef, rng *rand.Rand) (deck.Submission, error) {
	if base == nil {
		return deck.Submission{}, fmt.Errorf("no base given")
	}

	var units, others []scoredCard
	for _, def := range reg.Cards() {
		sc := scoredCard{def: def, score: scoreCard(def, base, rng)}
		if def.Type.IsUnit() {
			units = append(units, sc)
		} else {
			others = append(others, sc)
		}
	}

	b := builder{copies: make(map[string]int)}
	b.fill(units, unitSlots)
	b.fill(others, deck.MinCards)
	b.fill(units, deck.MinCards)

	if len(b.ids) < deck.MinCards {
		all := reg.Cards()
		for len(b.ids) < deck.MinCards {
			open := make([]*cards.CardDef, 0, len(all))
			for _, def := range all {
				if b.copies[def.Name()] < deck.MaxCopies {
					open = append(open, def)
				}
			}
			if len(open) == 0 {
				return deck.Submission{}, fmt.Errorf("registry cannot supply %d cards within the copy limit", deck.MinCards)
			}
			b.add(open[rng.Intn(len(open))])
		}
	}

	return deck.Submission{BaseID: base.ID, DeckCardIDs: b.ids}, nil
}

type builder struct {
	ids    []string
	copies map[string]int
}

func (b *builder) add(def *cards.CardDef) {
	b.ids = append(b.ids, def.ID)
	b.copies[def.Name()]++
}

// fill adds the highest scoring cards, up to the copy limit each, until the
// deck holds target cards.
func (b *builder) fill(candidates []scoredCard, target int) {
	sorted := append([]scoredCard(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })

	for _, sc := range sorted {
		for len(b.ids) < target && b.copies[sc.def.Name()] < deck.MaxCopies {
			b.add(sc.def)
		}
		if len(b.ids) >= target {
			return
		}
	}
}
