package engine

import "fmt"

// SetOutcome stamps t with the flags it gets when committed against s.
// Flags already present on t are overwritten.
func (s *State) SetOutcome(t *Turn) {
	t.PutCorrect = false
	t.HintRestored = false
	_, more := s.NextUndealtCard()
	t.LastCardDrawn = !more

	switch t.Type {
	case TurnDestroy:
		t.HintRestored = s.Hints < int(s.Rules.StartHints)
	case TurnPut:
		c := t.Card()
		if s.CardFits(c) {
			t.PutCorrect = true
			// A completed stack returns a token, never above the start budget.
			t.HintRestored = CardGeneratesHint(c) && s.Hints < int(s.Rules.StartHints)
		}
	case TurnHint:
		// Hints only spend a token; nothing to stamp.
	}
}

// Commit commits the proposal at index turnID of the player's current
// enumeration. It fails with ErrTurnNotAvailable for an unknown index.
func (g *Game) Commit(player uint8, turnID int) (Turn, error) {
	s, err := g.running()
	if err != nil {
		return Turn{}, err
	}
	if cur := s.CurrentPlayer(); player != cur {
		return Turn{}, fmt.Errorf("%w: p%d acted, p%d to move", ErrNotPlayersTurn, player, cur)
	}
	turns := s.PossibleTurns(player)
	if turnID < 0 || turnID >= len(turns) {
		return Turn{}, fmt.Errorf("%w: id %d of %d", ErrTurnNotAvailable, turnID, len(turns))
	}
	return g.commit(s, turns[turnID])
}

// CommitTurn validates a proposed turn against a fresh replay and appends it
// to the log. On any error the game is left unchanged.
func (g *Game) CommitTurn(proposed Turn) (Turn, error) {
	s, err := g.running()
	if err != nil {
		return Turn{}, err
	}
	return g.commit(s, proposed)
}

// commit runs the turn checks against s, which must be the replay of g.Log.
func (g *Game) commit(s *State, proposed Turn) (Turn, error) {
	if cur := s.CurrentPlayer(); proposed.Actor != cur {
		return Turn{}, fmt.Errorf("%w: p%d acted, p%d to move", ErrNotPlayersTurn, proposed.Actor, cur)
	}

	var (
		committed Turn
		found     bool
	)
	for _, t := range s.PossibleTurns(proposed.Actor) {
		if t.SameAction(proposed) {
			committed, found = t, true
			break
		}
	}
	if !found {
		return Turn{}, fmt.Errorf("%w: %s", ErrTurnNotAvailable, proposed)
	}

	committed.Number = s.TurnNumber
	g.Log = append(g.Log, committed)
	s.apply(committed)
	g.UpdateStatus(s)
	return committed, nil
}
