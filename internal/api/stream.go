package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/naicoco/guestbook/internal/identity"
)

// refreshEvent is pushed to a session's page after its state changes, telling
// the frontend to refetch the narrative.
var refreshEvent = []byte(`{"type":"refresh"}`)

// Hub tracks one live WebSocket connection per visitor session so state
// changes can nudge the page to re-render.
type Hub struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]*websocket.Conn)}
}

// Register adds a connection for a session, replacing any previous one.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.active[sessionID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	h.active[sessionID] = conn
	slog.Debug("Narrative stream registered", "session_id", sessionID)
}

// Unregister removes a connection if it is still the registered one.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active[sessionID] == conn {
		delete(h.active, sessionID)
	}
}

// Notify pushes a refresh event to the session's page, if connected.
// A missing or dead connection is not an error; the page will catch up on
// its next fetch.
func (h *Hub) Notify(ctx context.Context, sessionID string) {
	h.mu.RLock()
	conn := h.active[sessionID]
	h.mu.RUnlock()

	if conn == nil {
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, refreshEvent); err != nil {
		slog.Debug("Refresh push failed", "session_id", sessionID, "error", err)
	}
}

// StreamHandler upgrades to WebSocket and holds the connection open for
// refresh pushes until the client disconnects.
type StreamHandler struct {
	hub   *Hub
	isDev bool
}

// NewStreamHandler creates the WebSocket stream handler.
func NewStreamHandler(hub *Hub, isDev bool) *StreamHandler {
	return &StreamHandler{hub: hub, isDev: isDev}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	opts := &websocket.AcceptOptions{}
	if h.isDev {
		opts.OriginPatterns = []string{"*"}
	}

	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("Failed to accept WebSocket", "session_id", sessionID, "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "session_id", sessionID, "error", closeErr)
		}
	}()

	h.hub.Register(sessionID, ws)
	defer h.hub.Unregister(sessionID, ws)

	// The client never sends anything meaningful; reading just detects close.
	ctx := r.Context()
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			return
		}
	}
}
