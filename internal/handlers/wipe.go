package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/questforge/questforge/internal/services"
	"github.com/questforge/questforge/internal/storage"
	"github.com/questforge/questforge/pkg/game"
)

// WipeResponse reports what a full wipe removed.
type WipeResponse struct {
	Turns     int    `json:"turns"`
	Locations int    `json:"locations"`
	Quests    int    `json:"quests"`
	Images    int    `json:"images"`
	Error     string `json:"error,omitempty"`
}

// WipeHandler serves POST /v1/game/wipe: it removes every game for the
// requesting player across all genres and clears the instruction cache.
type WipeHandler struct {
	store        storage.Storage
	instructions services.InstructionStore
	logger       *slog.Logger
}

func NewWipeHandler(store storage.Storage, instructions services.InstructionStore, logger *slog.Logger) *WipeHandler {
	return &WipeHandler{store: store, instructions: instructions, logger: logger}
}

func (h *WipeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeWipeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	player := strings.TrimSpace(r.Header.Get("X-Player"))
	if player == "" {
		writeWipeError(w, h.logger, http.StatusUnauthorized, "Missing X-Player header.")
		return
	}

	ctx := r.Context()
	var response WipeResponse
	for _, genre := range game.Genres() {
		label := genre.Label()
		turns, err := h.store.DeleteTurns(ctx, player, label)
		if err != nil {
			h.logger.Error("Wipe failed", "player", player, "genre", label, "error", err)
			writeWipeError(w, h.logger, http.StatusInternalServerError, "Failed to wipe data.")
			return
		}
		locations, err := h.store.DeleteLocations(ctx, player, label)
		if err != nil {
			h.logger.Error("Wipe failed", "player", player, "genre", label, "error", err)
			writeWipeError(w, h.logger, http.StatusInternalServerError, "Failed to wipe data.")
			return
		}
		quests, err := h.store.DeleteQuests(ctx, player, label)
		if err != nil {
			h.logger.Error("Wipe failed", "player", player, "genre", label, "error", err)
			writeWipeError(w, h.logger, http.StatusInternalServerError, "Failed to wipe data.")
			return
		}
		response.Turns += turns
		response.Locations += locations
		response.Quests += quests
	}

	images, err := h.store.DeletePicmaps(ctx, player)
	if err != nil {
		h.logger.Error("Wipe failed", "player", player, "error", err)
		writeWipeError(w, h.logger, http.StatusInternalServerError, "Failed to wipe data.")
		return
	}
	response.Images = images

	h.instructions.Invalidate()
	h.logger.Info("Player data wiped",
		"player", player,
		"turns", response.Turns,
		"locations", response.Locations,
		"quests", response.Quests,
		"images", response.Images)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding wipe response", "error", err)
	}
}

func writeWipeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(WipeResponse{Error: msg}); err != nil {
		logger.Error("Error encoding error response", "error", err)
	}
}
