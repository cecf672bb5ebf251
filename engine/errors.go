package engine

import "errors"

var (
	ErrInvalidPlayerCount  = errors.New("invalid player count")
	ErrNotPlayersTurn      = errors.New("not the player's turn")
	ErrGameNotRunning      = errors.New("game is not running")
	ErrTurnNotAvailable    = errors.New("turn is not available")
	ErrInvalidCardEncoding = errors.New("invalid card encoding")
	ErrInvalidHintCode     = errors.New("invalid hint code")
	ErrInvalidRules        = errors.New("invalid game rules")
	ErrInvalidDeck         = errors.New("invalid start deck")

	// ErrCorruptTurnLog reports a committed log that cannot have been produced
	// by this engine. It is never retried.
	ErrCorruptTurnLog = errors.New("corrupt turn log")
)
