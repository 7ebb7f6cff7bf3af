// Command selfplay runs computer-vs-computer games and prints a summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caprica/fleet-server/internal/ai"
	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/game"
	"github.com/caprica/fleet-server/internal/tournament"
	"go.uber.org/zap"
)

func main() {
	games := flag.Int("games", 10, "number of games to play")
	seed := flag.Int64("seed", 1, "seed of the first game; game i uses seed+i")
	maxActions := flag.Int("max-actions", 5000, "actions per game before it is abandoned")
	cardPath := flag.String("cards", "", "card data file (default: embedded set)")
	verbose := flag.Bool("v", false, "print each game's log")
	ladder := flag.Bool("ladder", false, "play a round-robin between all bases instead of random games")
	legs := flag.Int("legs", 2, "times each pair of bases meets in a ladder")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var registry *cards.Registry
	if *cardPath == "" {
		registry, err = cards.Default()
	} else {
		registry, err = cards.LoadFile(*cardPath)
	}
	if err != nil {
		logger.Fatal("failed to load card data", zap.Error(err))
	}
	engine := game.NewEngine(registry)

	if *ladder {
		if err := runLadder(engine, registry, *legs, *seed, *maxActions, logger); err != nil {
			logger.Fatal("ladder failed", zap.Error(err))
		}
		return
	}

	var wins [2]int
	unfinished, failed, turns := 0, 0, 0
	for i := 0; i < *games; i++ {
		res, err := ai.PlayMatch(engine, *seed+int64(i), *maxActions)
		if err != nil {
			failed++
			logger.Error("game failed", zap.Int64("seed", res.Seed), zap.Error(err))
			continue
		}
		turns += res.Turns

		winner := "none"
		if res.Winner != nil {
			wins[*res.Winner]++
			winner = fmt.Sprintf("seat %d (%s)", *res.Winner, res.Bases[*res.Winner])
		} else {
			unfinished++
		}
		fmt.Printf("game %3d seed %-6d %-12s vs %-12s turns %3d influence %2d-%-2d winner %s\n",
			i+1, res.Seed, res.Bases[0], res.Bases[1], res.Turns, res.Influence[0], res.Influence[1], winner)
		if *verbose {
			for _, line := range res.Final.Log {
				fmt.Println("   ", line)
			}
		}
	}

	played := *games - failed
	avg := 0.0
	if played > 0 {
		avg = float64(turns) / float64(played)
	}
	fmt.Printf("\n%d games: seat 1 won %d, seat 2 won %d, %d unfinished, %d failed, %.1f turns on average\n",
		*games, wins[0], wins[1], unfinished, failed, avg)
	if failed > 0 {
		os.Exit(1)
	}
}

func runLadder(engine *game.Engine, registry *cards.Registry, legs int, seed int64, maxActions int, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := tournament.NewManager(logger)
	l := manager.CreateLadder("bases", legs, seed)
	for _, b := range registry.Bases() {
		if err := l.AddBase(b.ID); err != nil {
			return err
		}
	}

	snap, err := tournament.Run(ctx, l, engine, maxActions, logger)
	if err != nil {
		return err
	}

	for _, r := range snap.Rounds {
		for _, p := range r.Pairings {
			winner := p.Winner
			if winner == "" {
				winner = "draw"
			}
			fmt.Printf("round %2d seed %-6d %-12s vs %-12s turns %3d winner %s\n",
				r.Number, p.Seed, p.Home, p.Away, p.Turns, winner)
		}
	}

	fmt.Printf("\n%-4s %-12s %3s %3s %3s %3s\n", "#", "base", "pts", "w", "l", "d")
	for i, s := range snap.Standings {
		fmt.Printf("%-4d %-12s %3d %3d %3d %3d\n", i+1, s.Base, s.Points, s.Wins, s.Losses, s.Draws)
	}
	return nil
}
