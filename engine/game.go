// Package engine implements the Hanabi rules as a pure function of a
// committed turn log.
//
// Nothing about a running game is stored except the shuffled start deck, the
// setup rules, the lifecycle status and the log itself. Hands, play stacks,
// hint and failure budgets and the current player are recomputed by Replay
// whenever they are needed.
package engine

import (
	"fmt"
	"math/rand/v2"
)

// DeckSize is the number of cards in a full deck: 5 colors × (3+2+2+2+1).
const DeckSize = NumColors * 10

// ---------------------------------------------------------------------------
// xorshift64 RNG
// ---------------------------------------------------------------------------

type xorshift uint64

func (x *xorshift) next() uint64 {
	v := uint64(*x)
	v ^= v << 13
	v ^= v >> 7
	v ^= v << 17
	*x = xorshift(v)
	return v
}

// randN returns a random number in [0, n).
func (x *xorshift) randN(n uint64) uint64 {
	return x.next() % n
}

// ---------------------------------------------------------------------------
// Deck
// ---------------------------------------------------------------------------

// OrderedDeck returns every card once, sorted by (color, value, uniqueness).
func OrderedDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for color := uint8(0); color < NumColors; color++ {
		for value := uint8(MinValue); value <= MaxValue; value++ {
			for u := uint8(0); u < CopiesOf(value); u++ {
				deck = append(deck, NewCard(color, value, u))
			}
		}
	}
	return deck
}

// NewStartDeck returns the full deck shuffled with the given seed.
// The same seed always produces the same order.
func NewStartDeck(seed uint64) []Card {
	rng := xorshift(seed)
	if rng == 0 {
		rng = 1 // xorshift can't start at 0
	}
	deck := OrderedDeck()
	// Fisher-Yates shuffle.
	for i := len(deck) - 1; i > 0; i-- {
		j := int(rng.randN(uint64(i + 1)))
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// GenerateStartDeck returns a freshly shuffled deck from a random seed.
func GenerateStartDeck() []Card {
	return NewStartDeck(rand.Uint64())
}

// ValidateDeck checks that every card is valid and appears at most once.
func ValidateDeck(deck []Card) error {
	var seen [256]bool
	for i, c := range deck {
		if !c.Valid() {
			return fmt.Errorf("%w: invalid card %s at index %d", ErrInvalidDeck, c, i)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate card %s at index %d", ErrInvalidDeck, c, i)
		}
		seen[c] = true
	}
	return nil
}

// ---------------------------------------------------------------------------
// Game
// ---------------------------------------------------------------------------

// Game is the aggregate the rest of the system hands to the engine: the fixed
// setup, the lifecycle status and the committed turn log.
type Game struct {
	Deck   []Card
	Rules  Rules
	Status Status
	Log    []Turn
}

// NewGame creates a game in StatusCreated with a deck shuffled from seed.
func NewGame(numPlayers, startFailures, startHints int, seed uint64) (*Game, error) {
	rules, err := NewRules(numPlayers, startFailures, startHints)
	if err != nil {
		return nil, err
	}
	return &Game{
		Deck:   NewStartDeck(seed),
		Rules:  rules,
		Status: StatusCreated,
	}, nil
}

// Start moves a created game to StatusStarted.
func (g *Game) Start() error {
	if g.Status != StatusCreated {
		return fmt.Errorf("%w: cannot start a game in status %s", ErrGameNotRunning, g.Status)
	}
	g.Status = StatusStarted
	return nil
}

// State replays the log and returns the derived state.
func (g *Game) State() (*State, error) {
	return Replay(g.Deck, g.Rules, g.Log)
}

// running replays the log of a started game. A log that already ended the
// game counts as not running even if Status was never updated.
func (g *Game) running() (*State, error) {
	if g.Status != StatusStarted {
		return nil, fmt.Errorf("%w: status %s", ErrGameNotRunning, g.Status)
	}
	s, err := g.State()
	if err != nil {
		return nil, err
	}
	if st := s.Evaluate(); st != StatusStarted {
		return nil, fmt.Errorf("%w: log ended the game as %s", ErrGameNotRunning, st)
	}
	return s, nil
}

// UpdateStatus re-evaluates the lifecycle from s. Only a started game moves.
func (g *Game) UpdateStatus(s *State) Status {
	if g.Status == StatusStarted {
		g.Status = s.Evaluate()
	}
	return g.Status
}
