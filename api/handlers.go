// Package api exposes the HTTP surface: matchmaking queue endpoints and a
// read-only match-state lookup. Real-time play happens over the websocket.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tetrad-server/auth"
	"tetrad-server/game"
	"tetrad-server/matcherrors"
	"tetrad-server/matchmaking"
	"tetrad-server/storage"
)

const bearerPrefix = "Bearer "

// Handler holds dependencies for API handlers.
type Handler struct {
	Matchmaker *matchmaking.Matchmaker
	Store      *storage.Store
	Validate   auth.TokenValidator
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(mm *matchmaking.Matchmaker, store *storage.Store, validate auth.TokenValidator) *Handler {
	return &Handler{
		Matchmaker: mm,
		Store:      store,
		Validate:   validate,
	}
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// extractUserID validates the Authorization header and returns the user ID,
// or empty string on failure.
func (h *Handler) extractUserID(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	userID, err := h.Validate(token)
	if err != nil {
		return ""
	}
	return userID
}

type queueJoinRequest struct {
	DeckRef string `json:"deckRef"`
}

// QueueJoin enqueues the authenticated user for matchmaking.
func (h *Handler) QueueJoin(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := h.extractUserID(r)
	if userID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	var req queueJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeckRef == "" {
		http.Error(w, "deckRef required", http.StatusBadRequest)
		return
	}

	res, err := h.Matchmaker.Join(r.Context(), userID, req.DeckRef)
	if err != nil {
		switch {
		case errors.Is(err, matcherrors.ErrAlreadyQueued), errors.Is(err, matcherrors.ErrAlreadyInMatch):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, matcherrors.ErrDeckNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			slog.Error("queue join", "tag", "api", "user", userID, "err", err)
			http.Error(w, "failed to join queue", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, res)
}

// QueueStatus reports whether the user is idle, queued, or matched.
func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := h.extractUserID(r)
	if userID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}
	writeJSON(w, h.Matchmaker.Status(userID))
}

// QueueLeave removes the user from the waiting queue.
func (h *Handler) QueueLeave(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := h.extractUserID(r)
	if userID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}
	if err := h.Matchmaker.Leave(userID); err != nil {
		// Leaving while idle is harmless; still ack so clients can
		// call leave unconditionally on screen exit.
		writeJSON(w, map[string]string{"status": "idle"})
		return
	}
	writeJSON(w, map[string]string{"status": "left"})
}

// MatchState returns the caller's view of a match: live state if the match
// is running, otherwise the persisted snapshot.
func (h *Handler) MatchState(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := h.extractUserID(r)
	if userID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}
	matchID := strings.TrimPrefix(r.URL.Path, "/api/match/")
	if matchID == "" {
		http.Error(w, "match id required", http.StatusBadRequest)
		return
	}

	var state *game.GameState
	if m, ok := h.Matchmaker.MatchByID(matchID); ok {
		state = m.State()
	} else if h.Store != nil {
		var err error
		state, err = h.Store.LoadState(r.Context(), matchID)
		if err != nil {
			if errors.Is(err, matcherrors.ErrMatchNotFound) {
				http.Error(w, "match not found", http.StatusNotFound)
				return
			}
			slog.Error("loading match state", "tag", "api", "match", matchID, "err", err)
			http.Error(w, "failed to load match", http.StatusInternalServerError)
			return
		}
	}
	if state == nil {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}
	if state.PlayerByID(userID) == nil {
		http.Error(w, "not a participant", http.StatusForbidden)
		return
	}
	writeJSON(w, game.BuildStateView(state, userID, 0))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "tag", "api", "err", err)
	}
}
