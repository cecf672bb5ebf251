// Package server exposes the game service over HTTP with JSON bodies and a
// websocket feed of committed turns.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/nils-braun/hanabi/engine"
	"github.com/nils-braun/hanabi/service/internal/database"
	"github.com/nils-braun/hanabi/service/internal/game"
	"github.com/sirupsen/logrus"
)

type NewGameReq struct {
	Players       []uuid.UUID `json:"players"`
	StartPlayer   uuid.UUID   `json:"startPlayer"`
	StartHints    int         `json:"startHints"`
	StartFailures int         `json:"startFailures"`
}

type CommitReq struct {
	TurnNumber int `json:"turnNumber"`
	TurnID     int `json:"turnId"`
}

type ErrorRes struct {
	Error string `json:"error"`
}

// GameServer routes HTTP requests to the game service.
type GameServer struct {
	svc     *game.Service
	hub     *Hub
	log     *logrus.Entry
	handler http.Handler
}

// NewServer builds the router and subscribes the feed hub to the service's
// commit callback.
func NewServer(svc *game.Service, logger *logrus.Logger) *GameServer {
	s := &GameServer{
		svc: svc,
		hub: NewHub(logger),
		log: logger.WithField("component", "server"),
	}
	svc.OnTurnCommitted = s.hub.Publish

	mux := http.NewServeMux()
	mux.HandleFunc("POST /games", s.createGame)
	mux.HandleFunc("POST /games/{id}/start", s.startGame)
	mux.HandleFunc("GET /games/{id}/state", s.gameState)
	mux.HandleFunc("GET /games/{id}/log", s.turnLog)
	mux.HandleFunc("GET /games/{id}/players/{player}/view", s.playerView)
	mux.HandleFunc("GET /games/{id}/players/{player}/turns", s.enumerate)
	mux.HandleFunc("POST /games/{id}/players/{player}/turns", s.commit)
	mux.HandleFunc("GET /games/{id}/feed", s.feed)

	var h http.Handler = mux
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(s.log),
		handlers.PrintRecoveryStack(true),
	)(h)
	s.handler = handlers.CombinedLoggingHandler(logger.WriterLevel(logrus.DebugLevel), h)
	return s
}

func (s *GameServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Hub returns the websocket feed hub.
func (s *GameServer) Hub() *Hub { return s.hub }

func (s *GameServer) createGame(w http.ResponseWriter, r *http.Request) {
	var req NewGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	g, err := s.svc.NewGame(r.Context(), req.Players, req.StartFailures, req.StartHints, req.StartPlayer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *GameServer) startGame(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Start(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.svc.DerivedState(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *GameServer) gameState(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	st, err := s.svc.DerivedState(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *GameServer) turnLog(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	log, err := s.svc.TurnLog(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (s *GameServer) playerView(w http.ResponseWriter, r *http.Request) {
	id, player, ok := s.pathPlayer(w, r)
	if !ok {
		return
	}
	v, err := s.svc.View(r.Context(), id, player)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *GameServer) enumerate(w http.ResponseWriter, r *http.Request) {
	id, player, ok := s.pathPlayer(w, r)
	if !ok {
		return
	}
	e, err := s.svc.Enumerate(r.Context(), id, player)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *GameServer) commit(w http.ResponseWriter, r *http.Request) {
	id, player, ok := s.pathPlayer(w, r)
	if !ok {
		return
	}
	var req CommitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	turn, err := s.svc.Commit(r.Context(), id, player, req.TurnNumber, req.TurnID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, turn)
}

func (s *GameServer) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return uuid.Nil, false
	}
	return id, true
}

func (s *GameServer) pathPlayer(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	player, ok := s.pathID(w, r, "player")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return id, player, true
}

// statusOf maps service and engine errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, game.ErrUnknownPlayer):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrTurnNotAvailable),
		errors.Is(err, database.ErrTurnConflict),
		errors.Is(err, engine.ErrNotPlayersTurn),
		errors.Is(err, engine.ErrGameNotRunning):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidRules),
		errors.Is(err, engine.ErrInvalidPlayerCount),
		errors.Is(err, game.ErrInvalidPlayers):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *GameServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, statusOf(err), err)
}

func (s *GameServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	entry := s.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "status": status})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Debug("request rejected")
	}
	writeJSON(w, status, ErrorRes{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
