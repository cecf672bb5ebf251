// Package models holds the records the service persists and returns.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Game is the stored setup of one game. Everything else about it is derived
// from its turn log.
type Game struct {
	ID uuid.UUID `json:"id"`

	// Players in seat order; the start player sits in seat 0.
	Players     []uuid.UUID `json:"players"`
	StartPlayer uuid.UUID   `json:"startPlayer"`

	// Deck holds the shuffled start deck as three-digit card codes in draw order.
	Deck []string `json:"-"`

	CardsPerPlayer int `json:"cardsPerPlayer"`
	StartHints     int `json:"startHints"`
	StartFailures  int `json:"startFailures"`

	Status    int       `json:"status"` // engine.Status
	CreatedAt time.Time `json:"createdAt"`
}

// Seat returns the seat of player, or -1 if they are not in the game.
func (g *Game) Seat(player uuid.UUID) int {
	for i, p := range g.Players {
		if p == player {
			return i
		}
	}
	return -1
}
