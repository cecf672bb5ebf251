package engine

import "errors"

// PossibleTurns returns the proposals the player may choose from, in a fixed
// order:
//   - for each hand card, in hand order: put, then destroy
//   - if a hint token is left, for each other player in seat order and for
//     each color then each value: one hint naming the matching cards, or the
//     negated hint naming the whole hand when nothing matches
//
// Players with an empty hand cannot be hinted. Every proposal carries the
// outcome flags it would be committed with. The index of a proposal is only
// meaningful against the exact log it was computed from.
func (s *State) PossibleTurns(player uint8) []Turn {
	if player >= s.Rules.NumPlayers {
		return nil
	}
	hand := s.Hands[player]

	var turns []Turn
	for _, c := range hand {
		turns = append(turns, putTurn(player, c), destroyTurn(player, c))
	}

	if s.Hints > 0 {
		for _, target := range s.Opponents(player) {
			if len(s.Hands[target]) == 0 {
				continue
			}
			for color := uint8(0); color < NumColors; color++ {
				turns = append(turns, s.hintTurn(player, target, ColorHint(color)))
			}
			for value := uint8(MinValue); value <= MaxValue; value++ {
				turns = append(turns, s.hintTurn(player, target, ValueHint(value)))
			}
		}
	}

	for i := range turns {
		s.SetOutcome(&turns[i])
	}
	return turns
}

// hintTurn builds the hint proposal for a positive hint h, falling back to its
// negation when the target holds no matching card.
func (s *State) hintTurn(actor, target uint8, h Hint) Turn {
	hand := s.Hands[target]
	cards := hintedCards(hand, h)
	if len(cards) == 0 {
		h = h.Negate()
		cards = hintedCards(hand, h)
	}
	return Turn{
		Number: NoTurnNumber,
		Type:   TurnHint,
		Actor:  actor,
		Cards:  cards,
		Target: target,
		Hint:   h,
	}
}

// PossibleTurns returns the player's proposals, or nil unless the game is
// started and its log has not ended it.
func (g *Game) PossibleTurns(player uint8) ([]Turn, error) {
	s, err := g.running()
	if errors.Is(err, ErrGameNotRunning) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.PossibleTurns(player), nil
}
