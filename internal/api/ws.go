package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/attune-labs/attune/internal/domain"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// WebSocketHandler streams a live conversation: one turn frame in, one
// decision frame out, over a single connection.
type WebSocketHandler struct {
	base          *Handler
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates the websocket surface on top of the base
// handler's turn pipeline.
func NewWebSocketHandler(base *Handler, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		base:          base,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage represents WebSocket message structure.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsReply is one server frame.
type wsReply struct {
	Type  string        `json:"type"`
	Turn  *TurnResponse `json:"turn,omitempty"`
	Error string        `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Info("WebSocket connection request", "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		var msg wsMessage
		if err := h.readJSON(ctx, ws, &msg); err != nil {
			slog.Debug("WebSocket read ended", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "turn":
			if msg.Content == "" {
				h.writeJSON(ctx, ws, wsReply{Type: "error", Error: "empty turn"})
				continue
			}
			resp, _, errMsg := h.base.ProcessTurn(r, sessionID, msg.Content)
			if errMsg != "" {
				h.writeJSON(ctx, ws, wsReply{Type: "error", Error: errMsg})
				continue
			}
			h.writeJSON(ctx, ws, wsReply{Type: "decision", Turn: resp})

			// A closed session ends the stream after the final frame.
			if resp.State != nil && resp.State.Substate == domain.SubstateComplete {
				return
			}
		case "ping":
			h.writeJSON(ctx, ws, wsReply{Type: "pong"})
		default:
			h.writeJSON(ctx, ws, wsReply{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) readJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	_, data, err := ws.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal websocket reply", "error", err)
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err)
	}
}

// checkOrigin mirrors the HTTP CORS policy for websocket upgrades.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return h.allowedOrigin == "" || strings.HasPrefix(origin, h.allowedOrigin)
}
