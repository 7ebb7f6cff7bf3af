package game

import (
	"fmt"

	"github.com/caprica/fleet-server/internal/game/rules"
)

// SeatView is one player as seen by the viewer. Hidden zones are reduced to
// counts; Hand and Discard are only filled for the viewer's own seat.
type SeatView struct {
	Index        int            `json:"index"`
	Name         string         `json:"name"`
	BaseID       string         `json:"baseId"`
	Influence    int            `json:"influence"`
	Zones        PlayerZones    `json:"zones"`
	Hand         []CardInstance `json:"hand,omitempty"`
	HandCount    int            `json:"handCount"`
	DeckCount    int            `json:"deckCount"`
	Discard      []CardInstance `json:"discard,omitempty"`
	DiscardCount int            `json:"discardCount"`

	HasMulliganed      bool `json:"hasMulliganed"`
	HasPlayedResource  bool `json:"hasPlayedResource"`
	HasResolvedMission bool `json:"hasResolvedMission"`
}

// View is the snapshot of a game sent to one player.
type View struct {
	Viewer            int             `json:"viewer"`
	You               SeatView        `json:"you"`
	Opponent          SeatView        `json:"opponent"`
	Phase             rules.Phase     `json:"phase"`
	ReadyStep         string          `json:"readyStep"`
	Turn              int             `json:"turn"`
	FirstPlayerIndex  int             `json:"firstPlayerIndex"`
	ActivePlayerIndex int             `json:"activePlayerIndex"`
	FleetDefenseLevel int             `json:"fleetDefenseLevel"`
	Challenge         *ChallengeState `json:"challenge,omitempty"`
	CylonThreats      []CylonThreat   `json:"cylonThreats,omitempty"`
	Effects           []TimedEffect   `json:"effects,omitempty"`
	Log               []string        `json:"log"`
	Winner            *int            `json:"winner,omitempty"`
}

// PlayerView projects s for viewer. The opponent's hand, deck and discard are
// reported as counts, and face-down cards on the opponent's board are masked.
func (e *Engine) PlayerView(s *GameState, viewer int) (*View, error) {
	if viewer != 0 && viewer != 1 {
		return nil, fmt.Errorf("no such player %d", viewer)
	}
	c := s.Clone()
	v := &View{
		Viewer:            viewer,
		You:               seatView(c, viewer, true),
		Opponent:          seatView(c, Opponent(viewer), false),
		Phase:             c.Phase,
		ReadyStep:         c.ReadyStep.String(),
		Turn:              c.Turn,
		FirstPlayerIndex:  c.FirstPlayerIndex,
		ActivePlayerIndex: c.ActivePlayerIndex,
		FleetDefenseLevel: c.FleetDefenseLevel,
		Challenge:         c.Challenge,
		CylonThreats:      c.CylonThreats,
		Effects:           c.Effects,
		Log:               c.Log,
		Winner:            c.Winner,
	}
	return v, nil
}

func seatView(s *GameState, index int, own bool) SeatView {
	p := s.Players[index]
	sv := SeatView{
		Index:              index,
		Name:               p.Name,
		BaseID:             p.BaseID,
		Influence:          p.Influence,
		Zones:              p.Zones,
		HandCount:          len(p.Hand),
		DeckCount:          len(p.Deck),
		DiscardCount:       len(p.Discard),
		HasMulliganed:      p.HasMulliganed,
		HasPlayedResource:  p.HasPlayedResource,
		HasResolvedMission: p.HasResolvedMission,
	}
	if own {
		sv.Hand = p.Hand
		sv.Discard = p.Discard
		return sv
	}

	for i := range sv.Zones.ResourceStacks {
		rs := &sv.Zones.ResourceStacks[i]
		rs.TopCard = maskFaceDown(rs.TopCard)
		for j := range rs.SupplyCards {
			rs.SupplyCards[j] = maskFaceDown(rs.SupplyCards[j])
		}
	}
	for _, zone := range [][]UnitStack{sv.Zones.Alert, sv.Zones.Reserve} {
		for _, st := range zone {
			for j := range st.Cards {
				st.Cards[j] = maskFaceDown(st.Cards[j])
			}
		}
	}
	return sv
}

func maskFaceDown(c CardInstance) CardInstance {
	if c.FaceUp {
		return c
	}
	return CardInstance{}
}
