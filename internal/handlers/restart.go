package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/questforge/questforge/internal/storage"
	"github.com/questforge/questforge/pkg/game"
)

// RestartResponse reports what a genre restart removed.
type RestartResponse struct {
	Turns     int    `json:"turns"`
	Locations int    `json:"locations"`
	Quests    int    `json:"quests"`
	Images    int    `json:"images"`
	Error     string `json:"error,omitempty"`
}

// RestartHandler serves POST /v1/game/{genre}/restart: it purges one
// genre's game for the requesting player so the next turn starts fresh.
// Cached location images are cleared for the whole player since the
// regenerated world will not reuse them.
type RestartHandler struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewRestartHandler(store storage.Storage, logger *slog.Logger) *RestartHandler {
	return &RestartHandler{store: store, logger: logger}
}

func (h *RestartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeRestartError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	player := strings.TrimSpace(r.Header.Get("X-Player"))
	if player == "" {
		writeRestartError(w, h.logger, http.StatusUnauthorized, "Missing X-Player header.")
		return
	}

	genre, err := game.ParseGenre(genreFromPath(r.URL.Path))
	if err != nil {
		writeRestartError(w, h.logger, http.StatusBadRequest, "Unknown genre.")
		return
	}

	ctx := r.Context()
	label := genre.Label()
	var response RestartResponse

	if response.Turns, err = h.store.DeleteTurns(ctx, player, label); err == nil {
		if response.Locations, err = h.store.DeleteLocations(ctx, player, label); err == nil {
			if response.Quests, err = h.store.DeleteQuests(ctx, player, label); err == nil {
				response.Images, err = h.store.DeletePicmaps(ctx, player)
			}
		}
	}
	if err != nil {
		h.logger.Error("Restart failed", "player", player, "genre", label, "error", err)
		writeRestartError(w, h.logger, http.StatusInternalServerError, "Failed to restart game.")
		return
	}

	h.logger.Info("Game restarted",
		"player", player,
		"genre", label,
		"turns", response.Turns,
		"locations", response.Locations,
		"quests", response.Quests,
		"images", response.Images)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding restart response", "error", err)
	}
}

func writeRestartError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(RestartResponse{Error: msg}); err != nil {
		logger.Error("Error encoding error response", "error", err)
	}
}
