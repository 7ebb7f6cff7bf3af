package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Checksum computes a deterministic SHA-256 checksum of a game state. Two
// states with the same cards in the same zones, the same counters and the same
// log produce the same checksum.
func Checksum(s *GameState) (string, error) {
	if s == nil {
		return "", fmt.Errorf("nil game state")
	}
	hash := sha256.New()
	if _, err := hash.Write([]byte(canonical(s))); err != nil {
		return "", fmt.Errorf("failed to compute hash: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// canonical builds a text form of the state that does not depend on whether
// empty sequences are nil.
func canonical(s *GameState) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%s|%d|%d|%d|%d|%d|%d|%d\n",
		s.Phase, s.ReadyStep, s.Turn, s.FirstPlayerIndex, s.ActivePlayerIndex,
		s.FleetDefenseLevel, s.NextInstanceID, s.Seed, s.Shuffles)
	if s.Winner != nil {
		fmt.Fprintf(&buf, "WINNER:%d\n", *s.Winner)
	}

	for i, p := range s.Players {
		fmt.Fprintf(&buf, "PLAYER:%d|%s|%s|%d|%t|%t|%t|%d\n",
			i, p.Name, p.BaseID, p.Influence,
			p.HasMulliganed, p.HasPlayedResource, p.HasResolvedMission, p.ConsecutivePasses)
		writeCards(&buf, "  HAND", p.Hand)
		writeCards(&buf, "  DECK", p.Deck)
		writeCards(&buf, "  DISCARD", p.Discard)
		for _, st := range p.Zones.Alert {
			fmt.Fprintf(&buf, "  ALERT:%t\n", st.Exhausted)
			writeCards(&buf, "    CARD", st.Cards)
		}
		for _, st := range p.Zones.Reserve {
			fmt.Fprintf(&buf, "  RESERVE:%t\n", st.Exhausted)
			writeCards(&buf, "    CARD", st.Cards)
		}
		for _, rs := range p.Zones.ResourceStacks {
			fmt.Fprintf(&buf, "  RESOURCE:%t\n", rs.Exhausted)
			writeCards(&buf, "    TOP", []CardInstance{rs.TopCard})
			writeCards(&buf, "    SUPPLY", rs.SupplyCards)
		}
	}

	if c := s.Challenge; c != nil {
		fmt.Fprintf(&buf, "CHALLENGE:%d|%d|%s|%d|%s|%s|%s|%d|%t|%d\n",
			c.ChallengerInstanceID, c.ChallengerPlayer, optInt(c.DefenderInstanceID), c.DefenderPlayer,
			c.Step, optInt(c.ChallengerMystic), optInt(c.DefenderMystic),
			c.ConsecutivePasses, c.IsCylon, c.ThreatIndex)
	}
	for _, t := range s.CylonThreats {
		fmt.Fprintf(&buf, "THREAT:%d|%s|%d|%d\n", t.Card.InstanceID, t.Card.DefID, t.Power, t.Owner)
	}
	for _, fx := range s.Effects {
		fmt.Fprintf(&buf, "EFFECT:%d|%d|%s|%s\n", fx.TargetInstanceID, fx.PowerDelta, fx.Expiry, fx.Source)
	}
	for _, line := range s.Log {
		fmt.Fprintf(&buf, "LOG:%s\n", line)
	}
	return buf.String()
}

func writeCards(buf *bytes.Buffer, label string, cards []CardInstance) {
	for _, c := range cards {
		fmt.Fprintf(buf, "%s:%d|%s|%t\n", label, c.InstanceID, c.DefID, c.FaceUp)
	}
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
