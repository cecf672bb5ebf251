// internal/game/view.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/engine"
	"github.com/nils-braun/hanabi/engine/agent"
)

// CardKnowledge lists what a card's holder has been told about it: the colors
// and values still possible.
type CardKnowledge struct {
	Colors []int `json:"colors"`
	Values []int `json:"values"`
}

// PlayerView is one seat as seen by the observer. Hand is omitted for the
// observer's own seat.
type PlayerView struct {
	PlayerID      uuid.UUID       `json:"playerId"`
	Seat          int             `json:"seat"`
	HandSize      int             `json:"handSize"`
	Hand          []string        `json:"hand,omitempty"`
	Knowledge     []CardKnowledge `json:"knowledge"`
	IsSelf        bool            `json:"isSelf"`
	IsCurrentTurn bool            `json:"isCurrentTurn"`
}

// View is the game as one player may see it: every hand but their own, plus
// the public hint history condensed into per-card knowledge.
type View struct {
	GameID        uuid.UUID    `json:"gameId"`
	Status        string       `json:"status"`
	TurnNumber    int          `json:"turnNumber"`
	CurrentPlayer uuid.UUID    `json:"currentPlayer"`
	Hints         int          `json:"hints"`
	Failures      int          `json:"failures"`
	Stacks        []int        `json:"stacks"`
	DeckLeft      int          `json:"deckLeft"`
	Score         int          `json:"score"`
	Removed       []string     `json:"removed"`
	Players       []PlayerView `json:"players"`
}

// View returns the game as seen by observer, who must be seated in it.
func (s *Service) View(ctx context.Context, id, observer uuid.UUID) (*View, error) {
	g, log, eg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	self, err := seatOf(g, observer)
	if err != nil {
		return nil, err
	}
	tr, err := agent.Track(eg.Deck, eg.Rules, eg.Log)
	if err != nil {
		return nil, err
	}
	st := tr.State()
	status := eg.UpdateStatus(st)

	v := &View{
		GameID:     g.ID,
		Status:     status.String(),
		TurnNumber: len(log),
		Hints:      st.Hints,
		Failures:   st.Failures,
		Stacks:     make([]int, engine.NumColors),
		DeckLeft:   st.DeckLen(),
		Score:      st.Score(),
		Removed:    encodeCards(st.Removed),
		Players:    make([]PlayerView, len(g.Players)),
	}
	for color, h := range st.Stacks {
		v.Stacks[color] = int(h)
	}
	running := status == engine.StatusStarted
	if running {
		v.CurrentPlayer = g.Players[st.CurrentPlayer()]
	}

	for seat, pid := range g.Players {
		p := uint8(seat)
		pv := PlayerView{
			PlayerID:      pid,
			Seat:          seat,
			HandSize:      len(st.Hands[p]),
			Knowledge:     make([]CardKnowledge, 0, len(st.Hands[p])),
			IsSelf:        p == self,
			IsCurrentTurn: running && p == st.CurrentPlayer(),
		}
		if !pv.IsSelf {
			pv.Hand = encodeCards(st.Hand(p))
		}
		for _, k := range tr.Hand(p) {
			pv.Knowledge = append(pv.Knowledge, knowledgeView(k))
		}
		v.Players[seat] = pv
	}
	return v, nil
}

func knowledgeView(k agent.Knowledge) CardKnowledge {
	ck := CardKnowledge{Colors: []int{}, Values: []int{}}
	for color := 0; color < engine.NumColors; color++ {
		if k.Colors&(1<<color) != 0 {
			ck.Colors = append(ck.Colors, color)
		}
	}
	for value := engine.MinValue; value <= engine.MaxValue; value++ {
		if k.Values&(1<<(value-1)) != 0 {
			ck.Values = append(ck.Values, value)
		}
	}
	return ck
}
