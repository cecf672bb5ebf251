package engine

import "fmt"

// Color constants. The numeric values are part of the card encoding.
const (
	ColorGreen  uint8 = 0
	ColorBlue   uint8 = 1
	ColorWhite  uint8 = 2
	ColorRed    uint8 = 3
	ColorYellow uint8 = 4
)

const (
	NumColors = 5
	MinValue  = 1
	MaxValue  = 5
)

// Card is a packed uint8: bits 5–7 = color, bits 2–4 = value, bits 0–1 = uniqueness.
// The layout makes integer order equal to (color, value, uniqueness) order.
type Card uint8

// NoCard represents the absence of a card.
const NoCard Card = 0xFF

// NewCard constructs a Card from color, value and uniqueness.
func NewCard(color, value, uniqueness uint8) Card {
	return Card((color&0x07)<<5 | (value&0x07)<<2 | uniqueness&0x03)
}

// Color returns the color bits.
func (c Card) Color() uint8 { return uint8(c) >> 5 }

// Value returns the value bits (1–5).
func (c Card) Value() uint8 { return (uint8(c) >> 2) & 0x07 }

// Uniqueness returns the copy ordinal among cards of equal color and value.
func (c Card) Uniqueness() uint8 { return uint8(c) & 0x03 }

// CopiesOf returns how many cards of one color carry the given value.
//   - 1 → 3
//   - 2, 3, 4 → 2
//   - 5 → 1
func CopiesOf(value uint8) uint8 {
	switch value {
	case 1:
		return 3
	case 2, 3, 4:
		return 2
	case 5:
		return 1
	}
	return 0
}

// Valid reports whether c lies inside the deck's color/value/uniqueness ranges.
func (c Card) Valid() bool {
	if c == NoCard {
		return false
	}
	return c.Color() < NumColors &&
		c.Value() >= MinValue && c.Value() <= MaxValue &&
		c.Uniqueness() < CopiesOf(c.Value())
}

// String renders the debug label, e.g. "C1#3#1".
func (c Card) String() string {
	if c == NoCard {
		return "C-"
	}
	return fmt.Sprintf("C%d#%d#%d", c.Color(), c.Value(), c.Uniqueness())
}

// Encode returns the three-digit wire form "<color><value><uniqueness>".
func (c Card) Encode() string {
	return string([]byte{'0' + c.Color(), '0' + c.Value(), '0' + c.Uniqueness()})
}

// ParseCard decodes the three-digit wire form produced by Encode.
func ParseCard(s string) (Card, error) {
	if len(s) != 3 {
		return NoCard, fmt.Errorf("%w: %q has length %d, want 3", ErrInvalidCardEncoding, s, len(s))
	}
	var d [3]uint8
	for i := 0; i < 3; i++ {
		if s[i] < '0' || s[i] > '9' {
			return NoCard, fmt.Errorf("%w: %q contains non-digit %q", ErrInvalidCardEncoding, s, s[i])
		}
		d[i] = s[i] - '0'
	}
	if d[0] >= NumColors {
		return NoCard, fmt.Errorf("%w: %q has color %d", ErrInvalidCardEncoding, s, d[0])
	}
	if d[1] < MinValue || d[1] > MaxValue {
		return NoCard, fmt.Errorf("%w: %q has value %d", ErrInvalidCardEncoding, s, d[1])
	}
	if d[2] >= CopiesOf(d[1]) {
		return NoCard, fmt.Errorf("%w: %q has uniqueness %d for value %d", ErrInvalidCardEncoding, s, d[2], d[1])
	}
	return NewCard(d[0], d[1], d[2]), nil
}

// TurnType tags the three kinds of turn.
type TurnType uint8

const (
	TurnPut     TurnType = iota // 0
	TurnDestroy                 // 1
	TurnHint                    // 2
)

func (t TurnType) String() string {
	switch t {
	case TurnPut:
		return "put"
	case TurnDestroy:
		return "destroy"
	case TurnHint:
		return "hint"
	default:
		return fmt.Sprintf("TurnType(%d)", uint8(t))
	}
}

// Status is the lifecycle state of a game.
type Status uint8

const (
	StatusCreated Status = iota // 0
	StatusStarted               // 1
	StatusWon                   // 2
	StatusLost                  // 3
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusStarted:
		return "started"
	case StatusWon:
		return "won"
	case StatusLost:
		return "lost"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// IsTerminal reports whether no further turns may be committed in this status.
func (s Status) IsTerminal() bool { return s == StatusWon || s == StatusLost }
