package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/service/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	id               TEXT PRIMARY KEY,
	players          TEXT NOT NULL,
	start_player     TEXT NOT NULL,
	deck             TEXT NOT NULL,
	cards_per_player INTEGER NOT NULL,
	start_hints      INTEGER NOT NULL,
	start_failures   INTEGER NOT NULL,
	status           INTEGER NOT NULL,
	created_at       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	game_id         TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	number          INTEGER NOT NULL,
	type            INTEGER NOT NULL,
	actor           TEXT NOT NULL,
	cards           TEXT NOT NULL,
	hint_target     TEXT NOT NULL,
	hint_kind       INTEGER NOT NULL,
	put_correct     INTEGER NOT NULL,
	hint_restored   INTEGER NOT NULL,
	last_card_drawn INTEGER NOT NULL,
	created_at      INTEGER NOT NULL,
	PRIMARY KEY (game_id, number)
);`

// SQLiteStore stores games in an embedded SQLite database.
type SQLiteStore struct {
	DB *sql.DB
}

// NewSQLiteStore opens the database at path; ":memory:" gives a private
// in-memory database. A single connection is used so that writes are
// serialized and an in-memory database is shared by all calls.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteStore{DB: db}, nil
}

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateGame(ctx context.Context, g *models.Game) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO games (id, players, start_player, deck, cards_per_player, start_hints, start_failures, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, stringList(uuidStrings(g.Players)), g.StartPlayer, stringList(g.Deck),
		g.CardsPerPlayer, g.StartHints, g.StartFailures, g.Status, g.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var (
		g         models.Game
		players   stringList
		deck      stringList
		createdAt int64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, players, start_player, deck, cards_per_player, start_hints, start_failures, status, created_at
		 FROM games WHERE id = ?`,
		id,
	).Scan(&g.ID, &players, &g.StartPlayer, &deck,
		&g.CardsPerPlayer, &g.StartHints, &g.StartFailures, &g.Status, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load game: %w", err)
	}
	if g.Players, err = parseUUIDs(players); err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	g.Deck = deck
	g.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &g, nil
}

func (s *SQLiteStore) UpdateGameState(ctx context.Context, id uuid.UUID, status int) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE games SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update game state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, t *models.Turn, status int) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT (SELECT COALESCE(MAX(number), -1) + 1 FROM turns WHERE game_id = g.id)
		 FROM games g WHERE g.id = ?`,
		t.GameID,
	).Scan(&next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("next turn number: %w", err)
	}
	if t.Number != next {
		return fmt.Errorf("%w: got %d, log has %d turns", ErrTurnConflict, t.Number, next)
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (game_id, number, type, actor, cards, hint_target, hint_kind,
		                    put_correct, hint_restored, last_card_drawn, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.GameID, t.Number, t.Type, t.Actor, stringList(t.Cards), t.HintTarget, t.HintKind,
		t.PutCorrect, t.HintRestored, t.LastCardDrawn, t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return fmt.Errorf("%w: %v", ErrTurnConflict, err)
		}
		return fmt.Errorf("insert turn: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE games SET status = ? WHERE id = ?`, status, t.GameID); err != nil {
		return fmt.Errorf("update game state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadTurnLog(ctx context.Context, id uuid.UUID) ([]models.Turn, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("load turn log: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT game_id, number, type, actor, cards, hint_target, hint_kind,
		        put_correct, hint_restored, last_card_drawn, created_at
		 FROM turns
		 WHERE game_id = ?
		 ORDER BY number`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load turn log: %w", err)
	}
	defer rows.Close()

	var log []models.Turn
	for rows.Next() {
		var (
			t         models.Turn
			cards     stringList
			createdAt int64
		)
		if err := rows.Scan(&t.GameID, &t.Number, &t.Type, &t.Actor, &cards, &t.HintTarget, &t.HintKind,
			&t.PutCorrect, &t.HintRestored, &t.LastCardDrawn, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Cards = cards
		t.CreatedAt = time.UnixMilli(createdAt).UTC()
		log = append(log, t)
	}
	return log, rows.Err()
}

func (s *SQLiteStore) Close() { s.DB.Close() }

// stringList stores a []string as a JSON array in a TEXT column.
type stringList []string

func (l stringList) Value() (driver.Value, error) {
	if l == nil {
		l = stringList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *stringList) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("scan string list: unsupported type %T", src)
	}
	return json.Unmarshal(b, (*[]string)(l))
}
