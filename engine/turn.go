package engine

import "fmt"

// NoTurnNumber marks a proposed turn that has not been committed.
const NoTurnNumber = -1

// Turn is one action in the log. Proposed turns come from PossibleTurns with
// Number == NoTurnNumber; committed turns are numbered 0, 1, 2, ... in order.
type Turn struct {
	Number int
	Type   TurnType
	Actor  uint8

	// Cards holds the played or destroyed card, or for a hint the subset of
	// the target's hand the hint refers to.
	Cards []Card

	// Target and Hint are set for TurnHint only.
	Target uint8
	Hint   Hint

	// Outcome flags, stamped by SetOutcome.
	PutCorrect    bool
	HintRestored  bool
	LastCardDrawn bool
}

// Card returns the played or destroyed card, or NoCard for hints.
func (t Turn) Card() Card {
	if t.Type == TurnHint || len(t.Cards) == 0 {
		return NoCard
	}
	return t.Cards[0]
}

// IsProposed reports whether the turn has not been committed yet.
func (t Turn) IsProposed() bool { return t.Number == NoTurnNumber }

// SameAction reports whether t and o describe the same action, ignoring the
// turn number and outcome flags.
func (t Turn) SameAction(o Turn) bool {
	if t.Type != o.Type || t.Actor != o.Actor || !equalCards(t.Cards, o.Cards) {
		return false
	}
	if t.Type == TurnHint {
		return t.Target == o.Target && t.Hint == o.Hint
	}
	return true
}

func (t Turn) String() string {
	switch t.Type {
	case TurnPut, TurnDestroy:
		return fmt.Sprintf("#%d p%d %s %s", t.Number, t.Actor, t.Type, t.Card())
	case TurnHint:
		return fmt.Sprintf("#%d p%d hint p%d %s %v", t.Number, t.Actor, t.Target, t.Hint, t.Cards)
	default:
		return fmt.Sprintf("#%d p%d %s", t.Number, t.Actor, t.Type)
	}
}

func putTurn(actor uint8, c Card) Turn {
	return Turn{Number: NoTurnNumber, Type: TurnPut, Actor: actor, Cards: []Card{c}}
}

func destroyTurn(actor uint8, c Card) Turn {
	return Turn{Number: NoTurnNumber, Type: TurnDestroy, Actor: actor, Cards: []Card{c}}
}

func equalCards(a, b []Card) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
