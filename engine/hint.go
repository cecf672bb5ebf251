package engine

import "fmt"

// HintKind is the class of information a hint reveals.
type HintKind uint8

const (
	HintNone     HintKind = iota // 0 — not a hint turn
	HintColor                    // 1
	HintValue                    // 2
	HintNotColor                 // 3
	HintNotValue                 // 4
)

func (k HintKind) String() string {
	switch k {
	case HintNone:
		return "none"
	case HintColor:
		return "color"
	case HintValue:
		return "value"
	case HintNotColor:
		return "not-color"
	case HintNotValue:
		return "not-value"
	default:
		return fmt.Sprintf("HintKind(%d)", uint8(k))
	}
}

// Hint code constants. Negated hints carry their payload in the code.
const (
	HintCodeNone         uint8 = 0
	HintCodeColor        uint8 = 1
	HintCodeValue        uint8 = 2
	HintCodeNotColorBase uint8 = 10 // 10..14, see notColorCodes
	HintCodeNotValueBase uint8 = 20 // +value-1, 20..24
)

// notColorCodes maps a color to its not-color code. Yellow and red are
// swapped relative to their color numbers.
var notColorCodes = [NumColors]uint8{
	ColorGreen:  10,
	ColorBlue:   11,
	ColorWhite:  12,
	ColorRed:    14,
	ColorYellow: 13,
}

// Hint is a decoded hint: a kind plus the color or value it is about.
// Only the field matching the kind is meaningful.
type Hint struct {
	Kind  HintKind
	Color uint8
	Value uint8
}

func ColorHint(color uint8) Hint    { return Hint{Kind: HintColor, Color: color} }
func ValueHint(value uint8) Hint    { return Hint{Kind: HintValue, Value: value} }
func NotColorHint(color uint8) Hint { return Hint{Kind: HintNotColor, Color: color} }
func NotValueHint(value uint8) Hint { return Hint{Kind: HintNotValue, Value: value} }

// Negated reports whether the hint states what the cards are not.
func (h Hint) Negated() bool { return h.Kind == HintNotColor || h.Kind == HintNotValue }

// Negate maps a positive hint to its negated variant and back.
func (h Hint) Negate() Hint {
	switch h.Kind {
	case HintColor:
		h.Kind = HintNotColor
	case HintNotColor:
		h.Kind = HintColor
	case HintValue:
		h.Kind = HintNotValue
	case HintNotValue:
		h.Kind = HintValue
	}
	return h
}

// Matches reports whether card c satisfies the hint's predicate.
func (h Hint) Matches(c Card) bool {
	switch h.Kind {
	case HintColor:
		return c.Color() == h.Color
	case HintValue:
		return c.Value() == h.Value
	case HintNotColor:
		return c.Color() != h.Color
	case HintNotValue:
		return c.Value() != h.Value
	}
	return false
}

func (h Hint) valid() bool {
	switch h.Kind {
	case HintColor, HintNotColor:
		return h.Color < NumColors
	case HintValue, HintNotValue:
		return h.Value >= MinValue && h.Value <= MaxValue
	}
	return false
}

// Code returns the integer discriminant stored with a turn.
func (h Hint) Code() uint8 {
	switch h.Kind {
	case HintColor:
		return HintCodeColor
	case HintValue:
		return HintCodeValue
	case HintNotColor:
		if h.Color < NumColors {
			return notColorCodes[h.Color]
		}
	case HintNotValue:
		return HintCodeNotValueBase + h.Value - 1
	}
	return HintCodeNone
}

// DecodeHint is the inverse of Code. Positive hints come back without a
// payload; use Resolve with the hinted cards to recover it.
func DecodeHint(code uint8) (Hint, error) {
	switch {
	case code == HintCodeNone:
		return Hint{}, nil
	case code == HintCodeColor:
		return Hint{Kind: HintColor}, nil
	case code == HintCodeValue:
		return Hint{Kind: HintValue}, nil
	case code >= HintCodeNotColorBase && code < HintCodeNotColorBase+NumColors:
		for color, c := range notColorCodes {
			if c == code {
				return NotColorHint(uint8(color)), nil
			}
		}
	case code >= HintCodeNotValueBase && code < HintCodeNotValueBase+MaxValue:
		return NotValueHint(code - HintCodeNotValueBase + 1), nil
	}
	return Hint{}, fmt.Errorf("%w: %d", ErrInvalidHintCode, code)
}

// Resolve fills a positive hint's payload from the first hinted card.
// Negated hints are returned unchanged.
func (h Hint) Resolve(cards []Card) (Hint, error) {
	if h.Negated() || h.Kind == HintNone {
		return h, nil
	}
	if len(cards) == 0 {
		return h, fmt.Errorf("%w: %s hint without cards", ErrInvalidHintCode, h.Kind)
	}
	switch h.Kind {
	case HintColor:
		h.Color = cards[0].Color()
	case HintValue:
		h.Value = cards[0].Value()
	}
	return h, nil
}

func (h Hint) String() string {
	switch h.Kind {
	case HintColor, HintNotColor:
		return fmt.Sprintf("%s(%d)", h.Kind, h.Color)
	case HintValue, HintNotValue:
		return fmt.Sprintf("%s(%d)", h.Kind, h.Value)
	}
	return h.Kind.String()
}
