package models

import "github.com/google/uuid"

// GameState is the derived state of a game after its first TurnNumber turns.
// It is what the state cache stores.
type GameState struct {
	GameID        uuid.UUID `json:"gameId"`
	Status        string    `json:"status"`
	TurnNumber    int       `json:"turnNumber"`
	CurrentPlayer uuid.UUID `json:"currentPlayer"`
	Hints         int       `json:"hints"`
	Failures      int       `json:"failures"`
	Stacks        []int     `json:"stacks"` // by color
	NextCard      string    `json:"nextCard,omitempty"`
	DeckLeft      int       `json:"deckLeft"`
	Score         int       `json:"score"`
}
