package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/questforge/questforge/internal/engine"
	"github.com/questforge/questforge/pkg/chat"
	"github.com/questforge/questforge/pkg/game"
)

// TurnHandler processes game-turn requests for all genres. The genre is
// the path segment after the prefix: POST /v1/game/{genre}/turn.
type TurnHandler struct {
	orchestrator *engine.Orchestrator
	production   bool
	logger       *slog.Logger
}

func NewTurnHandler(orchestrator *engine.Orchestrator, production bool, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		orchestrator: orchestrator,
		production:   production,
		logger:       logger,
	}
}

func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeTurnError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	player := strings.TrimSpace(r.Header.Get("X-Player"))
	if player == "" {
		writeTurnError(w, h.logger, http.StatusUnauthorized, "Missing X-Player header.")
		return
	}

	genre, err := game.ParseGenre(genreFromPath(r.URL.Path))
	if err != nil {
		h.logger.Warn("Invalid genre in turn request", "path", r.URL.Path)
		writeTurnError(w, h.logger, http.StatusBadRequest, "Unknown genre.")
		return
	}

	var request chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Warn("Invalid turn request body", "error", err)
		writeTurnError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'command' field.")
		return
	}
	if err := request.Validate(); err != nil {
		writeTurnError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Turn requested",
		"player", player,
		"genre", genre.String(),
		"remote_addr", r.RemoteAddr)

	result, err := h.orchestrator.RunTurn(r.Context(), player, genre, &request)
	if err != nil {
		h.logger.Error("Turn failed", "player", player, "genre", genre.String(), "error", err)
		msg := "Failed to process turn. Please try again."
		if !h.production {
			msg = err.Error()
		}
		writeTurnError(w, h.logger, http.StatusInternalServerError, msg)
		return
	}

	response := chat.TurnResponse{
		Narrative: result.Narrative,
		GameState: result.State,
	}
	if !h.production {
		response.RawResponse = result.RawResponse
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding turn response", "error", err)
	}
}

// genreFromPath pulls the genre segment out of /v1/game/{genre}/turn.
func genreFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "game" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

func writeTurnError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(chat.TurnResponse{Error: msg}); err != nil {
		logger.Error("Error encoding error response", "error", err)
	}
}
