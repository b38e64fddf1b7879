package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/questforge/questforge/internal/storage"
	"github.com/questforge/questforge/pkg/game"
)

// StateResponse is the snapshot a client uses to restore a session:
// the latest game state, the total turn count, and the active quest.
type StateResponse struct {
	GameState *game.GameState `json:"gameState,omitempty"`
	Turns     int             `json:"turns"`
	Quest     *game.Quest     `json:"quest,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// StateHandler serves GET /v1/game/{genre}/state. It reads the latest
// persisted turn without touching the model, so clients can resume a
// game after a reload.
type StateHandler struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewStateHandler(store storage.Storage, logger *slog.Logger) *StateHandler {
	return &StateHandler{store: store, logger: logger}
}

func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeStateError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	player := strings.TrimSpace(r.Header.Get("X-Player"))
	if player == "" {
		writeStateError(w, h.logger, http.StatusUnauthorized, "Missing X-Player header.")
		return
	}

	genre, err := game.ParseGenre(genreFromPath(r.URL.Path))
	if err != nil {
		writeStateError(w, h.logger, http.StatusBadRequest, "Unknown genre.")
		return
	}

	ctx := r.Context()
	latest, err := h.store.LatestTurn(ctx, player, genre.Label())
	if err != nil {
		h.logger.Error("Loading latest turn failed", "player", player, "genre", genre.String(), "error", err)
		writeStateError(w, h.logger, http.StatusInternalServerError, "Failed to load game state.")
		return
	}

	response := StateResponse{}
	if latest != nil {
		state := game.StateFromTurn(latest, player, genre)
		if loc, err := h.store.GetLocation(ctx, player, genre.Label(), state.Location); err == nil && loc != nil {
			state.Exits = loc.Exits
		}
		response.GameState = state

		count, err := h.store.CountTurns(ctx, player, genre.Label())
		if err != nil {
			h.logger.Warn("Counting turns failed", "player", player, "error", err)
		}
		response.Turns = count

		if active, err := h.store.ActiveQuest(ctx, player, genre.Label()); err == nil && active != nil {
			response.Quest = active
		}
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding state response", "error", err)
	}
}

func writeStateError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(StateResponse{Error: msg}); err != nil {
		logger.Error("Error encoding error response", "error", err)
	}
}
