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

func getState(handler http.Handler, player, genre string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/game/"+genre+"/state", nil)
	if player != "" {
		req.Header.Set("X-Player", player)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestStateHandler_ResumesExistingGame(t *testing.T) {
	store := storage.NewMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewStateHandler(store, logger)
	seedActiveGame(t, store)

	w := getState(handler, "kira", "fantasy")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.GameState == nil {
		t.Fatal("expected a game state")
	}
	if resp.GameState.Location != "Tavern" {
		t.Errorf("unexpected location: %q", resp.GameState.Location)
	}
	if resp.GameState.Exits["north"] != "Square" {
		t.Errorf("exits should come from the location row, got %v", resp.GameState.Exits)
	}
	if resp.Turns != 1 {
		t.Errorf("expected 1 turn, got %d", resp.Turns)
	}
}

func TestStateHandler_NoGameYet(t *testing.T) {
	store := storage.NewMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewStateHandler(store, logger)

	w := getState(handler, "kira", "fantasy")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.GameState != nil {
		t.Errorf("expected nil state for a fresh player, got %+v", resp.GameState)
	}
}

func TestStateHandler_IncludesActiveQuest(t *testing.T) {
	store := storage.NewMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewStateHandler(store, logger)
	seedActiveGame(t, store)

	ctx := context.Background()
	if err := store.CreateQuests(ctx, []*game.Quest{{
		Player: "kira", Genre: game.GenreFantasy.Label(),
		Title: "Clear the Cellar", Description: "Rats.", StartingLocation: "Tavern",
		XPReward: 100, Status: game.QuestActive,
	}}); err != nil {
		t.Fatal(err)
	}

	w := getState(handler, "kira", "fantasy")

	var resp StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Quest == nil || resp.Quest.Title != "Clear the Cellar" {
		t.Errorf("expected the active quest, got %+v", resp.Quest)
	}
}

func TestStateHandler_Validation(t *testing.T) {
	store := storage.NewMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewStateHandler(store, logger)

	tests := []struct {
		name   string
		player string
		genre  string
		method string
		want   int
	}{
		{"missing player", "", "fantasy", http.MethodGet, http.StatusUnauthorized},
		{"unknown genre", "kira", "western", http.MethodGet, http.StatusBadRequest},
		{"wrong method", "kira", "fantasy", http.MethodPost, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/game/"+tt.genre+"/state", nil)
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
