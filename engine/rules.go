package engine

import "fmt"

const (
	MinPlayers = 2
	MaxPlayers = 4

	DefaultStartHints    = 10
	DefaultStartFailures = 3
	MaxStartHints        = 12
	MaxStartFailures     = 5
)

// Rules holds the fixed per-game parameters the derived state is computed from.
type Rules struct {
	NumPlayers     uint8
	CardsPerPlayer uint8
	StartHints     uint8
	StartFailures  uint8
}

// CardsPerPlayer returns the deal size for n players.
func CardsPerPlayer(n int) (uint8, error) {
	switch n {
	case 2:
		return 5, nil
	case 3, 4:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidPlayerCount, n)
}

// NewRules validates the setup parameters and derives the deal size.
func NewRules(numPlayers, startFailures, startHints int) (Rules, error) {
	deal, err := CardsPerPlayer(numPlayers)
	if err != nil {
		return Rules{}, err
	}
	if startFailures < 1 || startFailures > MaxStartFailures {
		return Rules{}, fmt.Errorf("%w: start failures %d not in 1..%d", ErrInvalidRules, startFailures, MaxStartFailures)
	}
	if startHints < 1 || startHints > MaxStartHints {
		return Rules{}, fmt.Errorf("%w: start hints %d not in 1..%d", ErrInvalidRules, startHints, MaxStartHints)
	}
	return Rules{
		NumPlayers:     uint8(numPlayers),
		CardsPerPlayer: deal,
		StartHints:     uint8(startHints),
		StartFailures:  uint8(startFailures),
	}, nil
}

// DefaultRules returns the standard setup for n players.
func DefaultRules(n int) (Rules, error) {
	return NewRules(n, DefaultStartFailures, DefaultStartHints)
}

// validate checks rules that were not built by NewRules, e.g. loaded from storage.
// The deal size is taken as given so that small fixture decks stay usable.
func (r Rules) validate() error {
	if r.NumPlayers < MinPlayers || r.NumPlayers > MaxPlayers {
		return fmt.Errorf("%w: %d", ErrInvalidPlayerCount, r.NumPlayers)
	}
	if r.CardsPerPlayer == 0 {
		return fmt.Errorf("%w: zero cards per player", ErrInvalidRules)
	}
	return nil
}
