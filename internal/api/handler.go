// Package api provides HTTP handlers for the coaching session API.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/attune-labs/attune/internal/classify"
	"github.com/attune-labs/attune/internal/domain"
	"github.com/attune-labs/attune/internal/engine"
	"github.com/attune-labs/attune/internal/retrieval"
	"github.com/attune-labs/attune/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"log/slog"
)

// defaultMaxRequestBodySize is the maximum allowed request body size (64KB).
// Conversation turns are short; anything larger is a client error.
const defaultMaxRequestBodySize = 64 << 10

// defaultExampleLimit bounds retrieval enrichment per turn.
const defaultExampleLimit = 3

// Handler serves the session endpoints.
type Handler struct {
	repo       store.Repository
	eng        *engine.Engine
	classifier classify.Classifier
	retriever  *retrieval.Store

	// locks serializes turn processing per session: turns are strictly
	// sequential because each depends on the mutated output of the previous.
	locks sync.Map // sessionID -> *sync.Mutex
}

// NewHandler creates a session handler. retriever may be nil.
func NewHandler(repo store.Repository, eng *engine.Engine, classifier classify.Classifier, retriever *retrieval.Store) *Handler {
	return &Handler{
		repo:       repo,
		eng:        eng,
		classifier: classifier,
		retriever:  retriever,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/{sessionID}", h.GetSession)
		r.Post("/{sessionID}/turns", h.PostTurn)
		r.Delete("/{sessionID}", h.DeleteSession)
	})
	r.Get("/api/health", h.Health)
}

// CreateSessionResponse is the body returned by CreateSession.
type CreateSessionResponse struct {
	SessionID string               `json:"session_id"`
	State     *domain.SessionState `json:"state"`
}

// CreateSession mints a new session at the initial substate.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	state := domain.NewSession(uuid.NewString())

	if err := h.repo.SaveSession(r.Context(), state); err != nil {
		slog.Error("Failed to persist new session", "session_id", state.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	slog.Info("Session created", "session_id", state.SessionID)
	JSON(w, http.StatusCreated, CreateSessionResponse{SessionID: state.SessionID, State: state})
}

// GetSession returns the current state snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	state, err := h.repo.LoadSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to load session", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if state == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	JSON(w, http.StatusOK, state)
}

// DeleteSession removes a session record.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.repo.DeleteSession(r.Context(), sessionID); err != nil {
		slog.Error("Failed to delete session", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// TurnRequest is one user contribution.
type TurnRequest struct {
	UserText string `json:"user_text"`
}

// TurnResponse carries the navigation decision, the post-turn state snapshot,
// and optional composition examples.
type TurnResponse struct {
	Decision domain.NavigationDecision `json:"decision"`
	State    *domain.SessionState      `json:"state"`
	Examples []retrieval.Example       `json:"examples,omitempty"`
}

// PostTurn processes one conversation turn.
func (h *Handler) PostTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserText == "" {
		Error(w, http.StatusBadRequest, "user_text is required")
		return
	}

	resp, status, errMsg := h.ProcessTurn(r, sessionID, req.UserText)
	if errMsg != "" {
		Error(w, status, errMsg)
		return
	}
	JSON(w, status, resp)
}

// ProcessTurn runs the full turn pipeline: load, classify, decide, persist,
// enrich. It is shared by the HTTP and websocket surfaces. A turn either
// completes and persists, or the stored pre-turn state stands untouched.
func (h *Handler) ProcessTurn(r *http.Request, sessionID, userText string) (*TurnResponse, int, string) {
	ctx := r.Context()

	mu := h.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := h.repo.LoadSession(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to load session", "session_id", sessionID, "error", err)
		return nil, http.StatusInternalServerError, "failed to load session"
	}
	if state == nil {
		return nil, http.StatusNotFound, "session not found"
	}

	cls, err := h.classifier.Classify(ctx, userText)
	if err != nil {
		// Classifier unavailable: proceed with a neutral classification.
		slog.Warn("Classifier unavailable, using neutral classification",
			"session_id", sessionID, "error", err)
		cls = classify.Neutral(userText)
	}

	decision := h.eng.Decide(ctx, userText, cls, state)

	if err := h.repo.SaveSession(ctx, state); err != nil {
		// Persistence is fatal for this layer: the in-memory mutation is
		// discarded and the client may retry the same turn.
		slog.Error("Failed to persist session turn", "session_id", sessionID, "error", err)
		return nil, http.StatusInternalServerError, "failed to persist session"
	}

	var examples []retrieval.Example
	if h.retriever != nil {
		examples = h.retriever.Retrieve(ctx, decision, userText, defaultExampleLimit)
	}

	return &TurnResponse{Decision: decision, State: state, Examples: examples}, http.StatusOK, ""
}

func (h *Handler) sessionLock(sessionID string) *sync.Mutex {
	v, _ := h.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Health reports database connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
