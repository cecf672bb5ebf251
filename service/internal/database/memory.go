package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/service/internal/models"
)

// MemoryStore keeps everything in process. Used for tests and the default
// server configuration.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[uuid.UUID]*models.Game
	turns map[uuid.UUID][]models.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[uuid.UUID]*models.Game),
		turns: make(map[uuid.UUID][]models.Turn),
	}
}

func (s *MemoryStore) CreateGame(_ context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[g.ID]; ok {
		return fmt.Errorf("create game: game %s already exists", g.ID)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	s.games[g.ID] = copyGame(g)
	return nil
}

func (s *MemoryStore) LoadGame(_ context.Context, id uuid.UUID) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGame(g), nil
}

func (s *MemoryStore) UpdateGameState(_ context.Context, id uuid.UUID, status int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	g.Status = status
	return nil
}

func (s *MemoryStore) AppendTurn(_ context.Context, t *models.Turn, status int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[t.GameID]
	if !ok {
		return ErrNotFound
	}
	log := s.turns[t.GameID]
	if t.Number != len(log) {
		return fmt.Errorf("%w: got %d, log has %d turns", ErrTurnConflict, t.Number, len(log))
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.turns[t.GameID] = append(log, copyTurn(t))
	g.Status = status
	return nil
}

func (s *MemoryStore) LoadTurnLog(_ context.Context, id uuid.UUID) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.games[id]; !ok {
		return nil, ErrNotFound
	}
	log := s.turns[id]
	out := make([]models.Turn, len(log))
	for i := range log {
		out[i] = copyTurn(&log[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() {}
