// Package cache memoizes derived game state and publishes committed turns.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/service/internal/models"
)

// TurnRecord is a committed turn as published to the turn history queue.
type TurnRecord struct {
	GameID    uuid.UUID   `json:"gameId"`
	Turn      models.Turn `json:"turn"`
	Status    string      `json:"status"`
	Timestamp int64       `json:"timestamp"` // unix millis
}

// StateCache maps (game id, log length) to the derived state. An entry is
// only returned for the log length it was computed at.
type StateCache interface {
	Get(ctx context.Context, gameID uuid.UUID, logLen int) (*models.GameState, bool, error)
	Put(ctx context.Context, gameID uuid.UUID, logLen int, st *models.GameState) error
	Invalidate(ctx context.Context, gameID uuid.UUID) error
	PublishTurn(ctx context.Context, rec TurnRecord) error
}

type memoryEntry struct {
	logLen  int
	state   models.GameState
	expires time.Time
}

// Memory is an in-process StateCache.
type Memory struct {
	ttl time.Duration

	mu        sync.Mutex
	entries   map[uuid.UUID]memoryEntry
	published []TurnRecord
}

// NewMemory returns a cache whose entries expire after ttl; 0 keeps them forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[uuid.UUID]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, gameID uuid.UUID, logLen int) (*models.GameState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[gameID]
	if !ok || e.logLen != logLen {
		return nil, false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(m.entries, gameID)
		return nil, false, nil
	}
	st := e.state
	st.Stacks = append([]int(nil), e.state.Stacks...)
	return &st, true, nil
}

func (m *Memory) Put(_ context.Context, gameID uuid.UUID, logLen int, st *models.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{logLen: logLen, state: *st}
	e.state.Stacks = append([]int(nil), st.Stacks...)
	if m.ttl > 0 {
		e.expires = time.Now().Add(m.ttl)
	}
	m.entries[gameID] = e
	return nil
}

func (m *Memory) Invalidate(_ context.Context, gameID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, gameID)
	return nil
}

func (m *Memory) PublishTurn(_ context.Context, rec TurnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, rec)
	return nil
}

// Published returns the records passed to PublishTurn so far.
func (m *Memory) Published() []TurnRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TurnRecord(nil), m.published...)
}
