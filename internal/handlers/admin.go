package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/questforge/questforge/internal/services"
)

// AdminHandler exposes operator endpoints. Currently one:
// POST /v1/admin/instructions/invalidate clears the instruction cache so
// edited documents take effect without a restart.
type AdminHandler struct {
	instructions services.InstructionStore
	logger       *slog.Logger
}

func NewAdminHandler(instructions services.InstructionStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{instructions: instructions, logger: logger}
}

func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Method not allowed. Only POST is supported."})
		return
	}

	h.instructions.Invalidate()
	h.logger.Info("Instruction cache invalidated via admin endpoint", "remote_addr", r.RemoteAddr)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		h.logger.Error("Error encoding admin response", "error", err)
	}
}
