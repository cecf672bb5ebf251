package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/engine"
	"github.com/nils-braun/hanabi/service/internal/cache"
	"github.com/nils-braun/hanabi/service/internal/database"
	"github.com/nils-braun/hanabi/service/internal/game"
	"github.com/nils-braun/hanabi/service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	svc := game.NewService(database.NewMemoryStore(), cache.NewMemory(0), logger, game.WithDeck(engine.OrderedDeck))
	return NewServer(svc, logger)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func decode[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v), res.Body.String())
	return v
}

// createStarted creates and starts a 2-player game over the API.
func createStarted(t *testing.T, h http.Handler) models.Game {
	t.Helper()
	res := do(t, h, http.MethodPost, "/games", NewGameReq{Players: []uuid.UUID{uuid.New(), uuid.New()}})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	g := decode[models.Game](t, res)

	res = do(t, h, http.MethodPost, "/games/"+g.ID.String()+"/start", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	return g
}

func turnsPath(g models.Game, seat int) string {
	return fmt.Sprintf("/games/%s/players/%s/turns", g.ID, g.Players[seat])
}

func TestCreateGame(t *testing.T) {
	s := newTestServer(t)
	a, b := uuid.New(), uuid.New()

	res := do(t, s, http.MethodPost, "/games", NewGameReq{Players: []uuid.UUID{a, b}, StartPlayer: b, StartHints: 8})
	require.Equal(t, http.StatusCreated, res.Code)
	g := decode[models.Game](t, res)
	assert.Equal(t, []uuid.UUID{b, a}, g.Players)
	assert.Equal(t, 8, g.StartHints)
	assert.NotContains(t, res.Body.String(), "deck", "the deck must not leak")

	t.Run("rejects bad rules", func(t *testing.T) {
		res := do(t, s, http.MethodPost, "/games", NewGameReq{Players: []uuid.UUID{a}})
		assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
		res = do(t, s, http.MethodPost, "/games", NewGameReq{Players: []uuid.UUID{a, a}})
		assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/games", strings.NewReader("{"))
		res := httptest.NewRecorder()
		s.ServeHTTP(res, req)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})
}

func TestStartGame(t *testing.T) {
	s := newTestServer(t)
	g := createStarted(t, s)

	res := do(t, s, http.MethodPost, "/games/"+g.ID.String()+"/start", nil)
	assert.Equal(t, http.StatusConflict, res.Code, "second start")

	res = do(t, s, http.MethodPost, "/games/"+uuid.NewString()+"/start", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, s, http.MethodPost, "/games/not-a-uuid/start", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestEnumerateCommitFlow(t *testing.T) {
	s := newTestServer(t)
	g := createStarted(t, s)

	res := do(t, s, http.MethodGet, turnsPath(g, 0), nil)
	require.Equal(t, http.StatusOK, res.Code)
	e := decode[game.Enumeration](t, res)
	assert.Equal(t, 0, e.TurnNumber)
	require.NotEmpty(t, e.Turns)

	res = do(t, s, http.MethodPost, turnsPath(g, 1), CommitReq{TurnNumber: 0, TurnID: 0})
	assert.Equal(t, http.StatusConflict, res.Code, "not seat 1's turn")

	res = do(t, s, http.MethodPost, turnsPath(g, 0), CommitReq{TurnNumber: 0, TurnID: 0})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	turn := decode[models.Turn](t, res)
	assert.Equal(t, 0, turn.Number)
	assert.True(t, turn.PutCorrect)

	res = do(t, s, http.MethodPost, turnsPath(g, 1), CommitReq{TurnNumber: 0, TurnID: 0})
	assert.Equal(t, http.StatusConflict, res.Code, "stale turn number")

	res = do(t, s, http.MethodGet, "/games/"+g.ID.String()+"/state", nil)
	require.Equal(t, http.StatusOK, res.Code)
	st := decode[models.GameState](t, res)
	assert.Equal(t, 1, st.TurnNumber)
	assert.Equal(t, g.Players[1], st.CurrentPlayer)
	assert.Equal(t, 1, st.Score)

	res = do(t, s, http.MethodGet, "/games/"+g.ID.String()+"/log", nil)
	require.Equal(t, http.StatusOK, res.Code)
	log := decode[[]models.Turn](t, res)
	require.Len(t, log, 1)
	assert.Equal(t, turn.Cards, log[0].Cards)
}

func TestPlayerView(t *testing.T) {
	s := newTestServer(t)
	g := createStarted(t, s)

	res := do(t, s, http.MethodGet, fmt.Sprintf("/games/%s/players/%s/view", g.ID, g.Players[0]), nil)
	require.Equal(t, http.StatusOK, res.Code)
	v := decode[game.View](t, res)
	require.Len(t, v.Players, 2)
	assert.Empty(t, v.Players[0].Hand)
	assert.Len(t, v.Players[1].Hand, 5)

	res = do(t, s, http.MethodGet, fmt.Sprintf("/games/%s/players/%s/view", g.ID, uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("load game: %w", database.ErrNotFound), http.StatusNotFound},
		{game.ErrUnknownPlayer, http.StatusNotFound},
		{engine.ErrTurnNotAvailable, http.StatusConflict},
		{database.ErrTurnConflict, http.StatusConflict},
		{engine.ErrNotPlayersTurn, http.StatusConflict},
		{engine.ErrGameNotRunning, http.StatusConflict},
		{engine.ErrInvalidRules, http.StatusUnprocessableEntity},
		{engine.ErrInvalidPlayerCount, http.StatusUnprocessableEntity},
		{game.ErrInvalidPlayers, http.StatusUnprocessableEntity},
		{engine.ErrCorruptTurnLog, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusOf(c.err), c.err.Error())
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/games", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res := httptest.NewRecorder()
	s.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "*", res.Header().Get("Access-Control-Allow-Origin"))
}

func TestFeed(t *testing.T) {
	s := newTestServer(t)
	g := createStarted(t, s)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/" + g.ID.String() + "/feed"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var ev FeedEvent
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, "state", ev.Type)
	require.NotNil(t, ev.State)
	assert.Equal(t, "started", ev.State.Status)
	assert.Equal(t, 1, s.Hub().Subscribers(g.ID))

	res := do(t, s, http.MethodPost, turnsPath(g, 0), CommitReq{TurnNumber: 0, TurnID: 1})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	ev = FeedEvent{}
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, "turn", ev.Type)
	require.NotNil(t, ev.Turn)
	assert.Equal(t, int(engine.TurnDestroy), ev.Turn.Type)
	assert.Equal(t, g.Players[1], ev.State.CurrentPlayer)

	conn.Close(websocket.StatusNormalClosure, "")
	assert.Eventually(t, func() bool { return s.Hub().Subscribers(g.ID) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestFeedUnknownGame(t *testing.T) {
	s := newTestServer(t)
	res := do(t, s, http.MethodGet, "/games/"+uuid.NewString()+"/feed", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.PanicLevel)
	h := NewHub(logger)
	id := uuid.New()
	sub := h.subscribe(id)

	for i := 0; i <= feedBuffer; i++ {
		h.Publish(models.Turn{GameID: id, Number: i}, &models.GameState{GameID: id})
	}
	assert.Equal(t, 0, h.Subscribers(id))
	select {
	case <-sub.dropped:
	default:
		t.Fatal("slow subscriber was not signalled")
	}
	h.unsubscribe(id, sub)
}

// TestFeedSkipsTurnsCoveredByState queues a turn the initial state already
// includes and checks the client only sees later turns.
func TestFeedSkipsTurnsCoveredByState(t *testing.T) {
	s := newTestServer(t)
	g := createStarted(t, s)
	res := do(t, s, http.MethodPost, turnsPath(g, 0), CommitReq{TurnNumber: 0, TurnID: 0})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	first := decode[models.Turn](t, res)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/" + g.ID.String() + "/feed"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var ev FeedEvent
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	require.Equal(t, "state", ev.Type)
	assert.Equal(t, 1, ev.State.TurnNumber)

	// Turn 0 reaching the hub after the state was read.
	s.Hub().Publish(first, ev.State)

	res = do(t, s, http.MethodPost, turnsPath(g, 1), CommitReq{TurnNumber: 1, TurnID: 1})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	ev = FeedEvent{}
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, "turn", ev.Type)
	require.NotNil(t, ev.Turn)
	assert.Equal(t, 1, ev.Turn.Number)
}
