package engine

import "fmt"

// State is everything derived from (deck, rules, log). It is produced by
// Replay and must not be edited by callers; Commit advances it through apply.
type State struct {
	Rules Rules

	// TurnNumber is the number of committed turns, i.e. the number the next
	// committed turn receives.
	TurnNumber int

	Hands  [][]Card
	Stacks [NumColors]uint8 // color → highest correctly played value, 0 if none

	Hints    int
	Failures int

	// NextCard is the deck index of the next undealt card; len(deck) once the
	// deck is exhausted.
	NextCard int

	// FinalTurns counts turns taken while the deck was already empty.
	FinalTurns int

	// Removed lists played and destroyed cards in the order they left a hand.
	Removed []Card

	deck []Card
}

// Replay deals the start deck and folds the log into a State. Any log that the
// engine could not have produced yields ErrCorruptTurnLog.
func Replay(deck []Card, rules Rules, log []Turn) (*State, error) {
	if err := rules.validate(); err != nil {
		return nil, err
	}
	if err := ValidateDeck(deck); err != nil {
		return nil, err
	}
	dealt := int(rules.NumPlayers) * int(rules.CardsPerPlayer)
	if dealt > len(deck) {
		return nil, fmt.Errorf("%w: %d cards cannot deal %d", ErrInvalidDeck, len(deck), dealt)
	}

	s := &State{
		Rules:    rules,
		Hands:    make([][]Card, rules.NumPlayers),
		Hints:    int(rules.StartHints),
		Failures: int(rules.StartFailures),
		deck:     deck,
	}

	// Deal: alternate between players (1 to p0, 1 to p1, ..., repeat).
	for c := uint8(0); c < rules.CardsPerPlayer; c++ {
		for p := uint8(0); p < rules.NumPlayers; p++ {
			s.Hands[p] = append(s.Hands[p], deck[s.NextCard])
			s.NextCard++
		}
	}

	for _, t := range log {
		if err := s.Step(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Step checks one committed turn against s and applies it. It fails with
// ErrCorruptTurnLog, leaving s unchanged, if the engine could not have
// committed t at this point.
func (s *State) Step(t Turn) error {
	if t.Number != s.TurnNumber {
		return fmt.Errorf("%w: turn number %d, want %d", ErrCorruptTurnLog, t.Number, s.TurnNumber)
	}
	if err := s.check(t); err != nil {
		return fmt.Errorf("%w: turn %d: %v", ErrCorruptTurnLog, t.Number, err)
	}
	s.apply(t)
	return nil
}

// check verifies that t is an action the engine would have offered at this
// point, stamped with the outcome the engine would have computed.
func (s *State) check(t Turn) error {
	if t.Actor != s.CurrentPlayer() {
		return fmt.Errorf("actor p%d acted on p%d's turn", t.Actor, s.CurrentPlayer())
	}

	switch t.Type {
	case TurnPut, TurnDestroy:
		if len(t.Cards) != 1 {
			return fmt.Errorf("%s with %d cards", t.Type, len(t.Cards))
		}
		if indexOf(s.Hands[t.Actor], t.Cards[0]) < 0 {
			return fmt.Errorf("%s of %s which p%d does not hold", t.Type, t.Cards[0], t.Actor)
		}

	case TurnHint:
		if t.Target == t.Actor || t.Target >= s.Rules.NumPlayers {
			return fmt.Errorf("hint to invalid target p%d", t.Target)
		}
		if s.Hints < 1 {
			return fmt.Errorf("hint with no hint tokens left")
		}
		if !t.Hint.valid() {
			return fmt.Errorf("malformed hint %s", t.Hint)
		}
		hand := s.Hands[t.Target]
		if t.Hint.Negated() && len(hintedCards(hand, t.Hint.Negate())) > 0 {
			return fmt.Errorf("negated hint %s while p%d holds matching cards", t.Hint, t.Target)
		}
		if want := hintedCards(hand, t.Hint); len(want) == 0 || !equalCards(want, t.Cards) {
			return fmt.Errorf("hint %s names %v, target hand gives %v", t.Hint, t.Cards, want)
		}

	default:
		return fmt.Errorf("unknown turn type %d", t.Type)
	}

	want := t
	s.SetOutcome(&want)
	if want.PutCorrect != t.PutCorrect || want.HintRestored != t.HintRestored || want.LastCardDrawn != t.LastCardDrawn {
		return fmt.Errorf("outcome flags put=%v restore=%v last=%v, want put=%v restore=%v last=%v",
			t.PutCorrect, t.HintRestored, t.LastCardDrawn,
			want.PutCorrect, want.HintRestored, want.LastCardDrawn)
	}
	return nil
}

// apply advances the state by one turn that already passed check.
func (s *State) apply(t Turn) {
	if t.LastCardDrawn {
		s.FinalTurns++
	}

	switch t.Type {
	case TurnPut:
		c := t.Cards[0]
		s.removeFromHand(t.Actor, c)
		if t.PutCorrect {
			s.Stacks[c.Color()] = c.Value()
		} else {
			s.Failures--
		}
		if t.HintRestored {
			s.Hints++
		}
		s.draw(t.Actor)

	case TurnDestroy:
		s.removeFromHand(t.Actor, t.Cards[0])
		if t.HintRestored {
			s.Hints++
		}
		s.draw(t.Actor)

	case TurnHint:
		s.Hints--
	}

	s.TurnNumber++
}

func (s *State) removeFromHand(p uint8, c Card) {
	hand := s.Hands[p]
	i := indexOf(hand, c)
	// Rebuild rather than splice in place: hands handed out earlier must not change.
	next := make([]Card, 0, len(hand))
	next = append(next, hand[:i]...)
	next = append(next, hand[i+1:]...)
	s.Hands[p] = next
	s.Removed = append(s.Removed, c)
}

func (s *State) draw(p uint8) {
	if s.NextCard < len(s.deck) {
		s.Hands[p] = append(s.Hands[p], s.deck[s.NextCard])
		s.NextCard++
	}
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// CurrentPlayer returns the seat that acts next.
func (s *State) CurrentPlayer() uint8 {
	return uint8(s.TurnNumber % int(s.Rules.NumPlayers))
}

// Hand returns a copy of the given player's hand in draw order.
func (s *State) Hand(p uint8) []Card {
	out := make([]Card, len(s.Hands[p]))
	copy(out, s.Hands[p])
	return out
}

// NextUndealtCard returns the next card a put or destroy would draw.
func (s *State) NextUndealtCard() (Card, bool) {
	if s.NextCard >= len(s.deck) {
		return NoCard, false
	}
	return s.deck[s.NextCard], true
}

// Undealt returns the cards still in the deck, in draw order.
func (s *State) Undealt() []Card {
	out := make([]Card, len(s.deck)-s.NextCard)
	copy(out, s.deck[s.NextCard:])
	return out
}

// DeckLen returns the number of cards left to draw.
func (s *State) DeckLen() int { return len(s.deck) - s.NextCard }

// CardFits reports whether c is the next card its color's stack needs.
func (s *State) CardFits(c Card) bool {
	return s.Stacks[c.Color()] == c.Value()-1
}

// CardGeneratesHint reports whether playing c correctly completes a stack.
func CardGeneratesHint(c Card) bool {
	return c.Value() == MaxValue
}

// Score returns the sum of all stack tops.
func (s *State) Score() int {
	total := 0
	for _, v := range s.Stacks {
		total += int(v)
	}
	return total
}

// Complete reports whether every stack reached MaxValue.
func (s *State) Complete() bool {
	for _, v := range s.Stacks {
		if v != MaxValue {
			return false
		}
	}
	return true
}

// Opponents returns all seats except the given one, in seat order.
func (s *State) Opponents(player uint8) []uint8 {
	opps := make([]uint8, 0, s.Rules.NumPlayers-1)
	for p := uint8(0); p < s.Rules.NumPlayers; p++ {
		if p != player {
			opps = append(opps, p)
		}
	}
	return opps
}

// hintedCards returns the cards of hand a hint would name: the matching cards
// for a positive hint, the whole hand for a negated one.
func hintedCards(hand []Card, h Hint) []Card {
	if h.Negated() {
		out := make([]Card, len(hand))
		copy(out, hand)
		return out
	}
	var out []Card
	for _, c := range hand {
		if h.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func indexOf(cards []Card, c Card) int {
	for i, x := range cards {
		if x == c {
			return i
		}
	}
	return -1
}
