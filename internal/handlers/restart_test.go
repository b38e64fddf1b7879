package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/questforge/questforge/internal/storage"
	"github.com/questforge/questforge/pkg/game"
)

func TestRestartHandler_PurgesOnlyRequestedGenre(t *testing.T) {
	store := storage.NewMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewRestartHandler(store, logger)
	seedActiveGame(t, store)

	ctx := context.Background()
	err := store.CreateTurn(ctx, &game.ConversationTurn{
		Player: "kira", Genre: game.GenreScifi.Label(),
		UserInput: "look", Action: "Consoles blink.", Turn: "1",
		Location: "Bridge", Description: "Consoles blink.",
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/game/fantasy/restart", nil)
	req.Header.Set("X-Player", "kira")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp RestartResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Turns != 1 || resp.Locations != 1 {
		t.Errorf("unexpected restart counts: %+v", resp)
	}

	if count, _ := store.CountTurns(ctx, "kira", game.GenreFantasy.Label()); count != 0 {
		t.Error("fantasy turns should be purged")
	}
	if count, _ := store.CountTurns(ctx, "kira", game.GenreScifi.Label()); count != 1 {
		t.Error("scifi turns must survive a fantasy restart")
	}
}

func TestRestartHandler_Validation(t *testing.T) {
	store := storage.NewMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewRestartHandler(store, logger)

	tests := []struct {
		name   string
		player string
		genre  string
		method string
		want   int
	}{
		{"missing player", "", "fantasy", http.MethodPost, http.StatusUnauthorized},
		{"unknown genre", "kira", "western", http.MethodPost, http.StatusBadRequest},
		{"wrong method", "kira", "fantasy", http.MethodGet, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/game/"+tt.genre+"/restart", nil)
			if tt.player != "" {
				req.Header.Set("X-Player", tt.player)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
