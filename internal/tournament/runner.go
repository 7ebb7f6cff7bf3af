package tournament

import (
	"context"
	"fmt"

	"github.com/caprica/fleet-server/internal/ai"
	"github.com/caprica/fleet-server/internal/game"
	"go.uber.org/zap"
)

// Run starts the ladder if needed and plays every remaining round with the
// computer in both seats. A match still running after maxActions counts as
// a draw.
func Run(ctx context.Context, l *Ladder, e *game.Engine, maxActions int, logger *zap.Logger) (Snapshot, error) {
	if l.GetState() == StateWaiting {
		if err := l.Start(); err != nil {
			return Snapshot{}, err
		}
	}

	for round := l.CreateRound(); round != nil; round = l.CreateRound() {
		for _, p := range round.Pairings {
			if err := ctx.Err(); err != nil {
				return l.Snapshot(), err
			}

			res, err := ai.PlayMatchWithBases(e, p.Seed, [2]string{p.Home, p.Away}, maxActions)
			if err != nil {
				return l.Snapshot(), fmt.Errorf("round %d %s vs %s: %w", round.Number, p.Home, p.Away, err)
			}

			winner := ""
			if res.Winner != nil {
				winner = res.Bases[*res.Winner]
			}
			if err := l.RecordMatchResult(round.Number, p.Home, p.Away, winner, res.Turns); err != nil {
				return l.Snapshot(), err
			}

			logger.Debug("ladder match played",
				zap.String("ladder_id", l.ID),
				zap.Int("round", round.Number),
				zap.String("home", p.Home),
				zap.String("away", p.Away),
				zap.String("winner", winner),
				zap.Int("turns", res.Turns),
			)
		}
	}

	snap := l.Snapshot()
	logger.Info("ladder finished",
		zap.String("ladder_id", l.ID),
		zap.Int("rounds", snap.NumRounds),
		zap.String("leader", snap.Standings[0].Base),
	)
	return snap, nil
}
