package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	feedBuffer       = 16
	feedWriteTimeout = 5 * time.Second
)

// FeedEvent is one message on a game's websocket feed.
type FeedEvent struct {
	Type  string            `json:"type"`
	Turn  *models.Turn      `json:"turn,omitempty"`
	State *models.GameState `json:"state"`
}

type subscriber struct {
	events chan FeedEvent
	// dropped is closed when the subscriber fell behind and was removed.
	dropped chan struct{}
}

// Hub fans committed turns out to the websocket subscribers of each game.
type Hub struct {
	log *logrus.Entry

	mu   sync.Mutex
	subs map[uuid.UUID]map[*subscriber]struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		log:  logger.WithField("component", "feed"),
		subs: make(map[uuid.UUID]map[*subscriber]struct{}),
	}
}

func (h *Hub) subscribe(gameID uuid.UUID) *subscriber {
	sub := &subscriber{
		events:  make(chan FeedEvent, feedBuffer),
		dropped: make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[gameID] == nil {
		h.subs[gameID] = make(map[*subscriber]struct{})
	}
	h.subs[gameID][sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(gameID uuid.UUID, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(gameID, sub)
}

// remove must be called with h.mu held.
func (h *Hub) remove(gameID uuid.UUID, sub *subscriber) {
	subs, ok := h.subs[gameID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subs, gameID)
	}
}

// Subscribers returns the number of open feeds for a game.
func (h *Hub) Subscribers(gameID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[gameID])
}

// Publish sends a committed turn to every subscriber of its game. A
// subscriber whose buffer is full is disconnected instead of blocking the
// committer.
func (h *Hub) Publish(turn models.Turn, state *models.GameState) {
	ev := FeedEvent{Type: "turn", Turn: &turn, State: state}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[turn.GameID] {
		select {
		case sub.events <- ev:
		default:
			h.log.WithField("game", turn.GameID).Warn("feed subscriber too slow, dropping")
			h.remove(turn.GameID, sub)
			close(sub.dropped)
		}
	}
}

// feed upgrades to a websocket, sends the current state, then streams turns
// until the client goes away.
func (s *GameServer) feed(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	// Subscribe before reading the state; turns it already covers are
	// skipped below.
	sub := s.hub.subscribe(id)
	defer s.hub.unsubscribe(id, sub)

	st, err := s.svc.DerivedState(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.log.WithError(err).WithField("game", id).Warn("websocket accept")
		return
	}
	defer conn.CloseNow()

	entry := s.log.WithField("game", id)
	entry.Debug("feed opened")

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer closes.
	ctx := conn.CloseRead(r.Context())
	if err := writeEvent(ctx, conn, FeedEvent{Type: "state", State: st}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			entry.Debug("feed closed")
			return
		case <-sub.dropped:
			conn.Close(websocket.StatusPolicyViolation, "feed fell behind")
			return
		case ev := <-sub.events:
			if ev.Turn != nil && ev.Turn.Number < st.TurnNumber {
				continue
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				entry.WithError(err).Debug("feed write")
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev FeedEvent) error {
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
