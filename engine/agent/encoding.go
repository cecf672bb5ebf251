package agent

import "github.com/nils-braun/hanabi/engine"

const (
	MaxHand     = 5                                  // largest deal, 2 players
	CardTypes   = engine.NumColors * engine.MaxValue // 25 (color, value) pairs
	KnowDim     = engine.NumColors + engine.MaxValue // possible colors + possible values
	OppSlotDim  = CardTypes + 1                      // one-hot card type, last index = empty slot
	StackDim    = engine.MaxValue + 1                // one-hot stack height 0..5
	MaxOpponent = engine.MaxPlayers - 1

	InputDim = MaxHand*KnowDim + MaxOpponent*MaxHand*OppSlotDim + engine.NumColors*StackDim + 3
)

// cardTypeIndex maps a card to its (color, value) index, ignoring uniqueness.
func cardTypeIndex(c engine.Card) int {
	return int(c.Color())*engine.MaxValue + int(c.Value()-1)
}

// Encode writes the player's observation into out. out is zeroed first.
//
// Layout:
//
//	own hand      MaxHand × KnowDim          possible colors and values per slot
//	opponents     MaxOpponent × MaxHand × OppSlotDim, in acting order after player
//	stacks        NumColors × StackDim       one-hot height
//	budgets       hints/start, failures/start, deck left/DeckSize
func Encode(tr *Tracker, player uint8, out *[InputDim]float32) {
	*out = [InputDim]float32{}
	s := tr.State()

	offset := 0
	own := tr.Hand(player)
	for i := 0; i < MaxHand; i++ {
		if i < len(own) {
			k := own[i]
			for b := 0; b < engine.NumColors; b++ {
				if k.Colors&(1<<b) != 0 {
					out[offset+b] = 1.0
				}
			}
			for b := 0; b < engine.MaxValue; b++ {
				if k.Values&(1<<b) != 0 {
					out[offset+engine.NumColors+b] = 1.0
				}
			}
		}
		offset += KnowDim
	}

	n := s.Rules.NumPlayers
	for d := uint8(1); d <= MaxOpponent; d++ {
		var hand []engine.Card
		if d < n {
			hand = s.Hand((player + d) % n)
		}
		for i := 0; i < MaxHand; i++ {
			idx := CardTypes
			if i < len(hand) {
				idx = cardTypeIndex(hand[i])
			}
			out[offset+idx] = 1.0
			offset += OppSlotDim
		}
	}

	for color := 0; color < engine.NumColors; color++ {
		out[offset+int(s.Stacks[color])] = 1.0
		offset += StackDim
	}

	out[offset] = float32(s.Hints) / float32(s.Rules.StartHints)
	out[offset+1] = float32(s.Failures) / float32(s.Rules.StartFailures)
	out[offset+2] = float32(s.DeckLen()) / float32(engine.DeckSize)
}
