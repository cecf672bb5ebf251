// Package agent tracks what each player has been told about their own hand
// and picks turns for computer players from that knowledge.
package agent

import (
	"fmt"
	"math/bits"

	"github.com/nils-braun/hanabi/engine"
)

const allFive = 0x1F

// Knowledge is what a player knows about one card in their hand: bit i of
// Colors is set while color i is still possible, bit v-1 of Values while value
// v is still possible.
type Knowledge struct {
	Colors uint8
	Values uint8
}

// Unknown is the knowledge of a freshly drawn card.
func Unknown() Knowledge { return Knowledge{Colors: allFive, Values: allFive} }

// Apply narrows k by a hint. named reports whether the hint turn listed this
// card; a negated hint always lists every card in the hand.
func (k Knowledge) Apply(h engine.Hint, named bool) Knowledge {
	switch h.Kind {
	case engine.HintColor:
		if named {
			k.Colors &= 1 << h.Color
		} else {
			k.Colors &^= 1 << h.Color
		}
	case engine.HintValue:
		if named {
			k.Values &= 1 << (h.Value - 1)
		} else {
			k.Values &^= 1 << (h.Value - 1)
		}
	case engine.HintNotColor:
		k.Colors &^= 1 << h.Color
	case engine.HintNotValue:
		k.Values &^= 1 << (h.Value - 1)
	}
	return k
}

// Color returns the card's color if only one is possible.
func (k Knowledge) Color() (uint8, bool) {
	if bits.OnesCount8(k.Colors) != 1 {
		return 0, false
	}
	return uint8(bits.TrailingZeros8(k.Colors)), true
}

// Value returns the card's value if only one is possible.
func (k Knowledge) Value() (uint8, bool) {
	if bits.OnesCount8(k.Values) != 1 {
		return 0, false
	}
	return uint8(bits.TrailingZeros8(k.Values)) + 1, true
}

// Possible reports whether c is consistent with k.
func (k Knowledge) Possible(c engine.Card) bool {
	return k.Colors&(1<<c.Color()) != 0 && k.Values&(1<<(c.Value()-1)) != 0
}

// Touched reports whether any hint has narrowed k.
func (k Knowledge) Touched() bool { return k != Unknown() }

// each calls fn for every (color, value) pair k allows.
func (k Knowledge) each(fn func(color, value uint8) bool) bool {
	for color := uint8(0); color < engine.NumColors; color++ {
		if k.Colors&(1<<color) == 0 {
			continue
		}
		for value := uint8(engine.MinValue); value <= engine.MaxValue; value++ {
			if k.Values&(1<<(value-1)) == 0 {
				continue
			}
			if !fn(color, value) {
				return false
			}
		}
	}
	return true
}

func (k Knowledge) String() string {
	return fmt.Sprintf("colors=%05b values=%05b", k.Colors, k.Values)
}

// Tracker folds a turn log into both the engine state and the per-card
// knowledge each player was given. Cards are unique, so knowledge is keyed by
// card and survives the card moving within a hand.
type Tracker struct {
	state *engine.State
	known map[engine.Card]Knowledge
}

// NewTracker returns a tracker positioned after the deal.
func NewTracker(deck []engine.Card, rules engine.Rules) (*Tracker, error) {
	s, err := engine.Replay(deck, rules, nil)
	if err != nil {
		return nil, err
	}
	return &Tracker{state: s, known: make(map[engine.Card]Knowledge)}, nil
}

// Track replays log into a new tracker.
func Track(deck []engine.Card, rules engine.Rules, log []engine.Turn) (*Tracker, error) {
	tr, err := NewTracker(deck, rules)
	if err != nil {
		return nil, err
	}
	for _, t := range log {
		if err := tr.Observe(t); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// Observe applies one committed turn. Hints narrow the knowledge of every card
// in the target's hand before the turn reaches the engine state.
func (tr *Tracker) Observe(t engine.Turn) error {
	var hand []engine.Card
	if t.Type == engine.TurnHint && t.Target < tr.state.Rules.NumPlayers {
		hand = tr.state.Hand(t.Target)
	}
	if err := tr.state.Step(t); err != nil {
		return err
	}
	for _, c := range hand {
		tr.known[c] = tr.Of(c).Apply(t.Hint, containsCard(t.Cards, c))
	}
	if t.Type != engine.TurnHint {
		delete(tr.known, t.Card())
	}
	return nil
}

// State returns the engine state after the observed turns. Callers must not
// modify it.
func (tr *Tracker) State() *engine.State { return tr.state }

// Of returns the knowledge about c held by whoever holds it.
func (tr *Tracker) Of(c engine.Card) Knowledge {
	if k, ok := tr.known[c]; ok {
		return k
	}
	return Unknown()
}

// Hand returns the knowledge for each slot of the player's hand, in hand order.
func (tr *Tracker) Hand(player uint8) []Knowledge {
	hand := tr.state.Hand(player)
	out := make([]Knowledge, len(hand))
	for i, c := range hand {
		out[i] = tr.Of(c)
	}
	return out
}

func containsCard(cards []engine.Card, c engine.Card) bool {
	for _, x := range cards {
		if x == c {
			return true
		}
	}
	return false
}
