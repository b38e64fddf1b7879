package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/questforge/questforge/internal/images"
	"github.com/questforge/questforge/pkg/game"
)

type ImageRequest struct {
	Location    string `json:"location"`
	Description string `json:"description,omitempty"`
}

type ImageResponse struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// ImageHandler serves location illustrations: POST /v1/game/{genre}/image.
// Repeated requests for the same location return the cached image.
type ImageHandler struct {
	pipeline *images.Pipeline
	logger   *slog.Logger
}

func NewImageHandler(pipeline *images.Pipeline, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{pipeline: pipeline, logger: logger}
}

func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeImageError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	player := strings.TrimSpace(r.Header.Get("X-Player"))
	if player == "" {
		writeImageError(w, h.logger, http.StatusUnauthorized, "Missing X-Player header.")
		return
	}

	genre, err := game.ParseGenre(genreFromPath(r.URL.Path))
	if err != nil {
		writeImageError(w, h.logger, http.StatusBadRequest, "Unknown genre.")
		return
	}

	var request ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeImageError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'location' field.")
		return
	}
	if strings.TrimSpace(request.Location) == "" {
		writeImageError(w, h.logger, http.StatusBadRequest, "Location cannot be empty.")
		return
	}

	url, err := h.pipeline.ImageFor(r.Context(), player, genre, request.Location, request.Description)
	if err != nil {
		h.logger.Error("Image generation failed",
			"player", player, "genre", genre.String(), "location", request.Location, "error", err)
		writeImageError(w, h.logger, http.StatusInternalServerError, "Failed to generate image.")
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ImageResponse{URL: url}); err != nil {
		h.logger.Error("Error encoding image response", "error", err)
	}
}

func writeImageError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ImageResponse{Error: msg}); err != nil {
		logger.Error("Error encoding error response", "error", err)
	}
}
