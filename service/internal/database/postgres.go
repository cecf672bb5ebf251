package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nils-braun/hanabi/service/internal/models"
)

const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS games (
	id               UUID PRIMARY KEY,
	players          TEXT[] NOT NULL,
	start_player     UUID NOT NULL,
	deck             TEXT[] NOT NULL,
	cards_per_player SMALLINT NOT NULL,
	start_hints      SMALLINT NOT NULL,
	start_failures   SMALLINT NOT NULL,
	status           SMALLINT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS turns (
	game_id         UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	number          INTEGER NOT NULL,
	type            SMALLINT NOT NULL,
	actor           UUID NOT NULL,
	cards           TEXT[] NOT NULL,
	hint_target     UUID NOT NULL,
	hint_kind       SMALLINT NOT NULL,
	put_correct     BOOLEAN NOT NULL,
	hint_restored   BOOLEAN NOT NULL,
	last_card_drawn BOOLEAN NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (game_id, number)
);`

// PostgresStore stores games in PostgreSQL through a pgx pool.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and pings the server.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{Pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateGame(ctx context.Context, g *models.Game) error {
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO games (id, players, start_player, deck, cards_per_player, start_hints, start_failures, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		g.ID, uuidStrings(g.Players), g.StartPlayer, g.Deck,
		g.CardsPerPlayer, g.StartHints, g.StartFailures, g.Status,
	).Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var (
		g       models.Game
		players []string
	)
	err := s.Pool.QueryRow(ctx,
		`SELECT id, players, start_player, deck, cards_per_player, start_hints, start_failures, status, created_at
		 FROM games WHERE id = $1`,
		id,
	).Scan(&g.ID, &players, &g.StartPlayer, &g.Deck,
		&g.CardsPerPlayer, &g.StartHints, &g.StartFailures, &g.Status, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load game: %w", err)
	}
	if g.Players, err = parseUUIDs(players); err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) UpdateGameState(ctx context.Context, id uuid.UUID, status int) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE games SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update game state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendTurn locks the game row, checks the next free number, inserts and
// writes the new status in one transaction. The primary key on
// (game_id, number) catches anything the check misses.
func (s *PostgresStore) AppendTurn(ctx context.Context, t *models.Turn, status int) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT TRUE FROM games WHERE id = $1 FOR UPDATE`, t.GameID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock game: %w", err)
	}

	var next int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(number), -1) + 1 FROM turns WHERE game_id = $1`,
		t.GameID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("next turn number: %w", err)
	}
	if t.Number != next {
		return fmt.Errorf("%w: got %d, log has %d turns", ErrTurnConflict, t.Number, next)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO turns (game_id, number, type, actor, cards, hint_target, hint_kind,
		                    put_correct, hint_restored, last_card_drawn)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		t.GameID, t.Number, t.Type, t.Actor, t.Cards, t.HintTarget, t.HintKind,
		t.PutCorrect, t.HintRestored, t.LastCardDrawn,
	).Scan(&t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrTurnConflict, pgErr.Detail)
		}
		return fmt.Errorf("insert turn: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE games SET status = $2 WHERE id = $1`, t.GameID, status); err != nil {
		return fmt.Errorf("update game state: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadTurnLog(ctx context.Context, id uuid.UUID) ([]models.Turn, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("load turn log: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.Pool.Query(ctx,
		`SELECT game_id, number, type, actor, cards, hint_target, hint_kind,
		        put_correct, hint_restored, last_card_drawn, created_at
		 FROM turns
		 WHERE game_id = $1
		 ORDER BY number`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load turn log: %w", err)
	}
	defer rows.Close()

	var log []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.GameID, &t.Number, &t.Type, &t.Actor, &t.Cards, &t.HintTarget, &t.HintKind,
			&t.PutCorrect, &t.HintRestored, &t.LastCardDrawn, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		log = append(log, t)
	}
	return log, rows.Err()
}

func (s *PostgresStore) Close() { s.Pool.Close() }

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(ss []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(ss))
	for i, s := range ss {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
