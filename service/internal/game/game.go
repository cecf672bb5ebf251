// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/engine"
	"github.com/nils-braun/hanabi/service/internal/cache"
	"github.com/nils-braun/hanabi/service/internal/database"
	"github.com/nils-braun/hanabi/service/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownPlayer  = errors.New("player is not in this game")
	ErrInvalidPlayers = errors.New("invalid player list")
)

// OnTurnCommittedFunc is called after a turn has been stored, with the state
// it produced. It runs outside the game lock.
type OnTurnCommittedFunc func(turn models.Turn, state *models.GameState)

// Enumeration is the answer to an enumerate call. The turn id of a proposal is
// its index in Turns; it is only valid while the log still has TurnNumber
// turns.
type Enumeration struct {
	TurnNumber int           `json:"turnNumber"`
	Turns      []models.Turn `json:"turns"`
}

// Service is the application layer over the engine: it loads a game and its
// log from the store, lets the engine decide, and writes the result back.
type Service struct {
	store database.Store
	cache cache.StateCache
	log   *logrus.Entry

	// newDeck supplies the start deck of new games.
	newDeck func() []engine.Card

	DefaultHints    int
	DefaultFailures int

	OnTurnCommitted OnTurnCommittedFunc

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithDeck replaces the random deck generator, e.g. for reproducible games.
func WithDeck(fn func() []engine.Card) Option {
	return func(s *Service) { s.newDeck = fn }
}

// WithDefaults sets the budgets used when NewGame is called with zeros.
func WithDefaults(hints, failures int) Option {
	return func(s *Service) {
		s.DefaultHints = hints
		s.DefaultFailures = failures
	}
}

func NewService(store database.Store, c cache.StateCache, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:           store,
		cache:           c,
		log:             logger.WithField("component", "game"),
		newDeck:         engine.GenerateStartDeck,
		DefaultHints:    engine.DefaultStartHints,
		DefaultFailures: engine.DefaultStartFailures,
		locks:           make(map[uuid.UUID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockGame serializes load-decide-store sequences for one game.
func (s *Service) lockGame(id uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// load reads a game and its log and builds the engine aggregate.
func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Game, []models.Turn, *engine.Game, error) {
	g, err := s.store.LoadGame(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := s.store.LoadTurnLog(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	eg, err := toEngineGame(g, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return g, log, eg, nil
}

// NewGame creates a game in the created state. The start player is rotated
// into seat 0; uuid.Nil picks the first player. Zero budgets take the
// service defaults.
func (s *Service) NewGame(ctx context.Context, players []uuid.UUID, startFailures, startHints int, startPlayer uuid.UUID) (*models.Game, error) {
	seen := make(map[uuid.UUID]bool, len(players))
	for _, p := range players {
		if p == uuid.Nil || seen[p] {
			return nil, fmt.Errorf("%w: nil or duplicate player %s", ErrInvalidPlayers, p)
		}
		seen[p] = true
	}
	if startFailures == 0 {
		startFailures = s.DefaultFailures
	}
	if startHints == 0 {
		startHints = s.DefaultHints
	}
	rules, err := engine.NewRules(len(players), startFailures, startHints)
	if err != nil {
		return nil, err
	}

	start := 0
	if startPlayer != uuid.Nil {
		start = -1
		for i, p := range players {
			if p == startPlayer {
				start = i
			}
		}
		if start < 0 {
			return nil, fmt.Errorf("%w: start player %s", ErrUnknownPlayer, startPlayer)
		}
	}
	seats := append(append([]uuid.UUID(nil), players[start:]...), players[:start]...)

	deck := s.newDeck()
	if err := engine.ValidateDeck(deck); err != nil {
		return nil, err
	}

	g := &models.Game{
		ID:             uuid.New(),
		Players:        seats,
		StartPlayer:    seats[0],
		Deck:           encodeCards(deck),
		CardsPerPlayer: int(rules.CardsPerPlayer),
		StartHints:     int(rules.StartHints),
		StartFailures:  int(rules.StartFailures),
		Status:         int(engine.StatusCreated),
	}
	if err := s.store.CreateGame(ctx, g); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"game": g.ID, "players": len(seats)}).Info("game created")
	return g, nil
}

// Start moves a created game to started.
func (s *Service) Start(ctx context.Context, id uuid.UUID) error {
	defer s.lockGame(id)()

	g, err := s.store.LoadGame(ctx, id)
	if err != nil {
		return err
	}
	eg := &engine.Game{Status: engine.Status(g.Status)}
	if err := eg.Start(); err != nil {
		return err
	}
	if err := s.store.UpdateGameState(ctx, id, int(eg.Status)); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.log.WithField("game", id).Info("game started")
	return nil
}

// Enumerate returns the player's proposals. It is empty unless the game is
// started.
func (s *Service) Enumerate(ctx context.Context, id, player uuid.UUID) (*Enumeration, error) {
	g, log, eg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	seat, err := seatOf(g, player)
	if err != nil {
		return nil, err
	}
	turns, err := eg.PossibleTurns(seat)
	if err != nil {
		return nil, err
	}
	out := &Enumeration{TurnNumber: len(log), Turns: make([]models.Turn, len(turns))}
	for i, t := range turns {
		out.Turns[i] = fromEngineTurn(g, t)
	}
	return out, nil
}

// Commit commits proposal turnID of the enumeration taken at turnNumber.
// If the log has moved on since, it fails with engine.ErrTurnNotAvailable and
// the caller must enumerate again.
func (s *Service) Commit(ctx context.Context, id, player uuid.UUID, turnNumber, turnID int) (models.Turn, error) {
	unlock := s.lockGame(id)
	turn, state, err := s.commit(ctx, id, player, turnNumber, turnID)
	unlock()
	if err != nil {
		return models.Turn{}, err
	}
	if s.OnTurnCommitted != nil {
		s.OnTurnCommitted(turn, state)
	}
	return turn, nil
}

func (s *Service) commit(ctx context.Context, id, player uuid.UUID, turnNumber, turnID int) (models.Turn, *models.GameState, error) {
	g, log, eg, err := s.load(ctx, id)
	if err != nil {
		return models.Turn{}, nil, err
	}
	seat, err := seatOf(g, player)
	if err != nil {
		return models.Turn{}, nil, err
	}
	if turnNumber != len(log) {
		return models.Turn{}, nil, fmt.Errorf("%w: enumerated at turn %d, log is at %d", engine.ErrTurnNotAvailable, turnNumber, len(log))
	}

	committed, err := eg.Commit(seat, turnID)
	if err != nil {
		return models.Turn{}, nil, err
	}
	turn := fromEngineTurn(g, committed)
	if err := s.store.AppendTurn(ctx, &turn, int(eg.Status)); err != nil {
		if errors.Is(err, database.ErrTurnConflict) {
			return models.Turn{}, nil, fmt.Errorf("%w: %v", engine.ErrTurnNotAvailable, err)
		}
		return models.Turn{}, nil, err
	}
	s.invalidate(ctx, id)

	st, err := eg.State()
	if err != nil {
		return models.Turn{}, nil, err
	}
	state := derivedState(g, eg.Status, st)

	entry := s.log.WithFields(logrus.Fields{"game": id, "player": player, "turn": turn.Number})
	entry.WithField("type", committed.Type.String()).Debug("turn committed")
	if eg.Status.IsTerminal() {
		entry.WithFields(logrus.Fields{"status": eg.Status.String(), "score": state.Score}).Info("game over")
	}

	rec := cache.TurnRecord{GameID: id, Turn: turn, Status: state.Status, Timestamp: time.Now().UnixMilli()}
	if err := s.cache.PublishTurn(ctx, rec); err != nil {
		entry.WithError(err).Warn("publish turn")
	}
	return turn, state, nil
}

// invalidate drops the cached state. Failures only cost a recomputation
// because entries are keyed by log length.
func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.WithField("game", id).WithError(err).Warn("invalidate cached state")
	}
}

// DerivedState returns the state recomputed from the log, memoized by log length.
func (s *Service) DerivedState(ctx context.Context, id uuid.UUID) (*models.GameState, error) {
	g, err := s.store.LoadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	log, err := s.store.LoadTurnLog(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{"game": id, "turn": len(log)})
	st, ok, err := s.cache.Get(ctx, id, len(log))
	if err != nil {
		entry.WithError(err).Warn("read cached state")
	}
	if ok && st.Status == engine.Status(g.Status).String() {
		return st, nil
	}

	eg, err := toEngineGame(g, log)
	if err != nil {
		return nil, err
	}
	es, err := eg.State()
	if err != nil {
		return nil, err
	}
	st = derivedState(g, eg.UpdateStatus(es), es)
	if err := s.cache.Put(ctx, id, len(log), st); err != nil {
		entry.WithError(err).Warn("cache state")
	}
	return st, nil
}

// Game returns the stored setup of a game.
func (s *Service) Game(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return s.store.LoadGame(ctx, id)
}

// TurnLog returns the committed turns in order.
func (s *Service) TurnLog(ctx context.Context, id uuid.UUID) ([]models.Turn, error) {
	if _, err := s.store.LoadGame(ctx, id); err != nil {
		return nil, err
	}
	return s.store.LoadTurnLog(ctx, id)
}
