package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/caprica/fleet-server/internal/ai"
	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/deck"
)

// deckSamples is how many computer decks are built per base.
const deckSamples = 200

var knownAbilities = map[string]bool{
	cards.AbilityInfluenceDrain: true,
	cards.AbilityInfluenceGain:  true,
	cards.AbilityPowerBuff:      true,
	cards.AbilityReadyReserve:   true,
	cards.AbilityDrawCards:      true,
}

func main() {
	fmt.Println("=== Fleet Card Data Check ===")

	var (
		registry *cards.Registry
		err      error
	)
	if len(os.Args) > 1 {
		absPath, err := filepath.Abs(os.Args[1])
		if err != nil {
			log.Fatalf("Failed to get absolute path: %v", err)
		}
		fmt.Printf("Card file: %s\n", absPath)
		registry, err = cards.LoadFile(absPath)
		if err != nil {
			log.Fatalf("Failed to load card file: %v", err)
		}
	} else {
		fmt.Println("Card file: embedded set")
		registry, err = cards.Default()
		if err != nil {
			log.Fatalf("Failed to load embedded cards: %v", err)
		}
	}

	byType := make(map[cards.CardType]int)
	names := make(map[string]bool)
	warnings := 0
	for _, c := range registry.Cards() {
		byType[c.Type]++
		names[c.Name()] = true
		if id := c.AbilityID(); id != "" && !knownAbilities[id] {
			log.Printf("Warning: %s uses ability %q, which resolves as a no-op", c.ID, id)
			warnings++
		}
		if c.Type == cards.TypeMission && c.Resolve == nil {
			log.Printf("Warning: mission %s has no resolve requirement", c.ID)
			warnings++
		}
	}

	fmt.Printf("Found %d cards (%d distinct names) and %d bases\n", len(registry.Cards()), len(names), len(registry.Bases()))
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-10s %d\n", t, byType[cards.CardType(t)])
	}

	if limit := len(names) * deck.MaxCopies; limit < deck.MinCards {
		log.Fatalf("At most %d legal cards per deck; %d are required", limit, deck.MinCards)
	}

	for _, b := range registry.Bases() {
		for seed := int64(0); seed < deckSamples; seed++ {
			sub, err := ai.BuildDeckForBase(registry, b, rand.New(rand.NewSource(seed)))
			if err != nil {
				log.Fatalf("%s seed %d: computer deck failed: %v", b.ID, seed, err)
			}
			if res := deck.Validate(registry, sub); !res.Valid {
				log.Fatalf("%s seed %d: computer deck is illegal: %v", b.ID, seed, res.Errors)
			}
		}
		fmt.Printf("✓ %-14s %d legal computer decks\n", b.ID, deckSamples)
	}

	fmt.Printf("Done with %d warnings\n", warnings)
}
