package agent

import (
	"errors"
	"math/rand/v2"

	"github.com/nils-braun/hanabi/engine"
)

// ErrNoTurns is returned when the player has nothing to choose from, i.e. the
// game is not running or it is not their turn.
var ErrNoTurns = errors.New("agent: no turns available")

// Chooser picks one of the player's proposals and returns its turn id, the
// index into State.PossibleTurns(player).
type Chooser interface {
	Choose(tr *Tracker, player uint8) (int, error)
}

// Heuristic plays cards it knows are playable, hints playable cards to other
// players, and otherwise destroys the card it knows least about.
// It only looks at its own hand through the tracker's knowledge.
type Heuristic struct{}

func (Heuristic) Choose(tr *Tracker, player uint8) (int, error) {
	s := tr.State()
	if player != s.CurrentPlayer() {
		return 0, ErrNoTurns
	}
	turns := s.PossibleTurns(player)
	if len(turns) == 0 {
		return 0, ErrNoTurns
	}
	hand := s.Hand(player)
	know := tr.Hand(player)

	find := func(match func(engine.Turn) bool) int {
		for i, t := range turns {
			if match(t) {
				return i
			}
		}
		return -1
	}
	cardTurn := func(typ engine.TurnType, c engine.Card) int {
		return find(func(t engine.Turn) bool { return t.Type == typ && t.Card() == c })
	}

	for i, k := range know {
		if surelyPlayable(s, k) {
			return cardTurn(engine.TurnPut, hand[i]), nil
		}
	}

	if s.Hints > 0 {
		if id := usefulHint(tr, player, turns); id >= 0 {
			return id, nil
		}
	}

	if s.Hints < int(s.Rules.StartHints) && len(hand) > 0 {
		return cardTurn(engine.TurnDestroy, hand[discardSlot(s, know)]), nil
	}

	if id := find(func(t engine.Turn) bool { return t.Type == engine.TurnHint }); id >= 0 {
		return id, nil
	}
	if id := find(func(t engine.Turn) bool { return t.Type == engine.TurnDestroy }); id >= 0 {
		return id, nil
	}
	return 0, ErrNoTurns
}

// usefulHint returns the id of a hint that points an opponent at a playable
// card they do not know about, or -1. Opponents are considered in the order
// they act after player.
func usefulHint(tr *Tracker, player uint8, turns []engine.Turn) int {
	s := tr.State()
	n := s.Rules.NumPlayers
	for d := uint8(1); d < n; d++ {
		target := (player + d) % n
		for _, c := range s.Hand(target) {
			k := tr.Of(c)
			if !s.CardFits(c) || surelyPlayable(s, k) {
				continue
			}
			h := engine.ColorHint(c.Color())
			if _, known := k.Value(); !known {
				h = engine.ValueHint(c.Value())
			}
			for i, t := range turns {
				if t.Type == engine.TurnHint && t.Target == target && t.Hint == h {
					return i
				}
			}
		}
	}
	return -1
}

// discardSlot picks a card known to be useless, else the oldest card no hint
// has touched, else the oldest card.
func discardSlot(s *engine.State, know []Knowledge) int {
	for i, k := range know {
		if surelyUseless(s, k) {
			return i
		}
	}
	for i, k := range know {
		if !k.Touched() {
			return i
		}
	}
	return 0
}

func surelyPlayable(s *engine.State, k Knowledge) bool {
	return k.each(func(color, value uint8) bool { return s.Stacks[color] == value-1 })
}

func surelyUseless(s *engine.State, k Knowledge) bool {
	return k.each(func(color, value uint8) bool { return value <= s.Stacks[color] })
}

// Random picks uniformly among the proposals.
type Random struct {
	Rand *rand.Rand
}

func (r Random) Choose(tr *Tracker, player uint8) (int, error) {
	s := tr.State()
	if player != s.CurrentPlayer() {
		return 0, ErrNoTurns
	}
	turns := s.PossibleTurns(player)
	if len(turns) == 0 {
		return 0, ErrNoTurns
	}
	return r.Rand.IntN(len(turns)), nil
}
