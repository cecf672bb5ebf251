// internal/game/engine_adapter.go
package game

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/engine"
	"github.com/nils-braun/hanabi/service/internal/models"
)

// encodeCards converts engine cards to their three-digit storage codes.
func encodeCards(cards []engine.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Encode()
	}
	return out
}

// decodeCards parses storage codes back into engine cards.
func decodeCards(codes []string) ([]engine.Card, error) {
	out := make([]engine.Card, len(codes))
	for i, s := range codes {
		c, err := engine.ParseCard(s)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// engineRules maps the stored setup onto engine rules.
func engineRules(g *models.Game) engine.Rules {
	return engine.Rules{
		NumPlayers:     uint8(len(g.Players)),
		CardsPerPlayer: uint8(g.CardsPerPlayer),
		StartHints:     uint8(g.StartHints),
		StartFailures:  uint8(g.StartFailures),
	}
}

// toEngineTurn converts a stored turn into the engine's form. Seats are looked
// up by player id; positive hints are resolved from the named cards.
func toEngineTurn(g *models.Game, t models.Turn) (engine.Turn, error) {
	actor := g.Seat(t.Actor)
	if actor < 0 {
		return engine.Turn{}, fmt.Errorf("%w: turn %d actor %s is not seated", engine.ErrCorruptTurnLog, t.Number, t.Actor)
	}
	if t.Type < int(engine.TurnPut) || t.Type > int(engine.TurnHint) {
		return engine.Turn{}, fmt.Errorf("%w: turn %d has type %d", engine.ErrCorruptTurnLog, t.Number, t.Type)
	}
	cards, err := decodeCards(t.Cards)
	if err != nil {
		return engine.Turn{}, fmt.Errorf("%w: turn %d: %v", engine.ErrCorruptTurnLog, t.Number, err)
	}
	et := engine.Turn{
		Number:        t.Number,
		Type:          engine.TurnType(t.Type),
		Actor:         uint8(actor),
		Cards:         cards,
		PutCorrect:    t.PutCorrect,
		HintRestored:  t.HintRestored,
		LastCardDrawn: t.LastCardDrawn,
	}
	if et.Type == engine.TurnHint {
		target := g.Seat(t.HintTarget)
		if target < 0 {
			return engine.Turn{}, fmt.Errorf("%w: turn %d hint target %s is not seated", engine.ErrCorruptTurnLog, t.Number, t.HintTarget)
		}
		if t.HintKind < 0 || t.HintKind > math.MaxUint8 {
			return engine.Turn{}, fmt.Errorf("%w: turn %d has hint kind %d", engine.ErrCorruptTurnLog, t.Number, t.HintKind)
		}
		h, err := engine.DecodeHint(uint8(t.HintKind))
		if err == nil {
			h, err = h.Resolve(cards)
		}
		if err != nil {
			return engine.Turn{}, fmt.Errorf("%w: turn %d: %v", engine.ErrCorruptTurnLog, t.Number, err)
		}
		et.Target = uint8(target)
		et.Hint = h
	}
	return et, nil
}

// fromEngineTurn converts an engine turn (proposed or committed) to the
// stored form.
func fromEngineTurn(g *models.Game, t engine.Turn) models.Turn {
	mt := models.Turn{
		GameID:        g.ID,
		Number:        t.Number,
		Type:          int(t.Type),
		Actor:         g.Players[t.Actor],
		Cards:         encodeCards(t.Cards),
		PutCorrect:    t.PutCorrect,
		HintRestored:  t.HintRestored,
		LastCardDrawn: t.LastCardDrawn,
	}
	if t.Type == engine.TurnHint {
		mt.HintTarget = g.Players[t.Target]
		mt.HintKind = int(t.Hint.Code())
	}
	return mt
}

// toEngineGame builds the engine aggregate from the stored game and log.
func toEngineGame(g *models.Game, log []models.Turn) (*engine.Game, error) {
	deck, err := decodeCards(g.Deck)
	if err != nil {
		return nil, fmt.Errorf("game %s deck: %w", g.ID, err)
	}
	eg := &engine.Game{
		Deck:   deck,
		Rules:  engineRules(g),
		Status: engine.Status(g.Status),
		Log:    make([]engine.Turn, 0, len(log)),
	}
	for _, t := range log {
		et, err := toEngineTurn(g, t)
		if err != nil {
			return nil, err
		}
		eg.Log = append(eg.Log, et)
	}
	return eg, nil
}

// seatOf returns the engine seat of player.
func seatOf(g *models.Game, player uuid.UUID) (uint8, error) {
	seat := g.Seat(player)
	if seat < 0 {
		return 0, fmt.Errorf("%w: %s in game %s", ErrUnknownPlayer, player, g.ID)
	}
	return uint8(seat), nil
}

// derivedState renders s as the cached/public state record.
func derivedState(g *models.Game, status engine.Status, s *engine.State) *models.GameState {
	st := &models.GameState{
		GameID:     g.ID,
		Status:     status.String(),
		TurnNumber: s.TurnNumber,
		Hints:      s.Hints,
		Failures:   s.Failures,
		Stacks:     make([]int, engine.NumColors),
		DeckLeft:   s.DeckLen(),
		Score:      s.Score(),

		CurrentPlayer: g.Players[s.CurrentPlayer()],
	}
	for color, v := range s.Stacks {
		st.Stacks[color] = int(v)
	}
	if c, ok := s.NextUndealtCard(); ok {
		st.NextCard = c.Encode()
	}
	return st
}
