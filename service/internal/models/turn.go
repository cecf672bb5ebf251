package models

import (
	"time"

	"github.com/google/uuid"
)

// Turn is one committed turn as stored. Cards are three-digit codes and the
// hint kind is its integer discriminant.
type Turn struct {
	GameID uuid.UUID `json:"gameId"`
	Number int       `json:"number"`
	Type   int       `json:"type"` // engine.TurnType
	Actor  uuid.UUID `json:"actor"`
	Cards  []string  `json:"cards"`

	// Set for hints only; uuid.Nil and 0 otherwise.
	HintTarget uuid.UUID `json:"hintTarget,omitempty"`
	HintKind   int       `json:"hintKind,omitempty"`

	PutCorrect    bool `json:"putCorrect"`
	HintRestored  bool `json:"hintRestored"`
	LastCardDrawn bool `json:"lastCardDrawn"`

	CreatedAt time.Time `json:"createdAt"`
}
