package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/fypmatch/recommender-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedMessage is the wire format of the selection feed.
type FeedMessage struct {
	Type  string        `json:"type"`
	Claim *models.Claim `json:"claim,omitempty"`
	Data  string        `json:"data,omitempty"`
}

// SelectionFeed fans successful topic claims out to websocket subscribers.
type SelectionFeed struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewSelectionFeed creates an empty feed.
func NewSelectionFeed() *SelectionFeed {
	return &SelectionFeed{conns: make(map[*websocket.Conn]struct{})}
}

// Broadcast sends a claim event to every subscriber. Dead connections are
// dropped on write failure.
func (f *SelectionFeed) Broadcast(claim *models.Claim) {
	data, err := json.Marshal(FeedMessage{Type: "claim", Claim: claim})
	if err != nil {
		slog.Error("failed to marshal feed message", "error", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("dropping feed subscriber", "error", err)
			conn.Close()
			delete(f.conns, conn)
		}
	}
}

func (f *SelectionFeed) add(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[conn] = struct{}{}
}

func (f *SelectionFeed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, conn)
}

// Subscribers reports the current subscriber count.
func (f *SelectionFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (s *Server) handleSelectionFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	// Greet before registering so the write never races a broadcast.
	greeting := FeedMessage{Type: "connected", Data: "subscribed to selection feed"}
	if data, err := json.Marshal(greeting); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	s.feed.add(conn)
	defer s.feed.remove(conn)

	slog.Info("selection feed subscriber connected", "remote_addr", r.RemoteAddr)

	// Subscribers only listen; reads just detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("feed websocket read error", "error", err)
			}
			break
		}
	}

	slog.Info("selection feed subscriber disconnected", "remote_addr", r.RemoteAddr)
}
