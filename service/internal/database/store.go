// Package database persists games and their turn logs.
package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/service/internal/models"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrTurnConflict is returned by AppendTurn when the turn's number is not
	// the next free one, i.e. another writer committed first.
	ErrTurnConflict = errors.New("turn number already taken")
)

// Store is the storage collaborator of the game service. Implementations must
// be safe for concurrent use.
type Store interface {
	CreateGame(ctx context.Context, g *models.Game) error
	LoadGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	UpdateGameState(ctx context.Context, id uuid.UUID, status int) error

	// AppendTurn stores t only if t.Number equals the current log length,
	// and sets the game's status to the one the turn produced. Both writes
	// happen or neither does.
	AppendTurn(ctx context.Context, t *models.Turn, status int) error
	LoadTurnLog(ctx context.Context, id uuid.UUID) ([]models.Turn, error)

	Close()
}

func copyGame(g *models.Game) *models.Game {
	c := *g
	c.Players = append([]uuid.UUID(nil), g.Players...)
	c.Deck = append([]string(nil), g.Deck...)
	return &c
}

func copyTurn(t *models.Turn) models.Turn {
	c := *t
	c.Cards = append([]string(nil), t.Cards...)
	return c
}
