package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/questforge/questforge/internal/engine"
	"github.com/questforge/questforge/internal/services"
	"github.com/questforge/questforge/internal/storage"
	"github.com/questforge/questforge/pkg/chat"
	"github.com/questforge/questforge/pkg/game"
)

type stubInstructions struct{}

func (stubInstructions) Get(ctx context.Context, genre game.Genre) (string, error) {
	return "You are the game master.", nil
}
func (stubInstructions) GetDoc(ctx context.Context, key string) (string, error) {
	return "Instructions for " + key, nil
}
func (stubInstructions) Invalidate() {}

func newTestTurnHandler(llm *services.MockLLMService) (*TurnHandler, *storage.MockStorage) {
	store := storage.NewMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := engine.NewGenerator(llm, store, stubInstructions{}, "world-model", logger)
	orch := engine.NewOrchestrator(store, llm, stubInstructions{}, gen, "turn-model", logger)
	return NewTurnHandler(orch, false, logger), store
}

func seedActiveGame(t *testing.T, store *storage.MockStorage) {
	t.Helper()
	ctx := context.Background()
	err := store.CreateLocations(ctx, []*game.Location{{
		Player: "kira", Genre: game.GenreFantasy.Label(), Name: "Tavern",
		Exits: map[string]string{"north": "Square"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	err = store.CreateTurn(ctx, &game.ConversationTurn{
		Player: "kira", Genre: game.GenreFantasy.Label(),
		UserInput: "look", Action: "You look around.", Turn: "1",
		Location: "Tavern", Description: "You look around.",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func postTurn(handler http.Handler, player, genre string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/v1/game/"+genre+"/turn", bytes.NewReader(data))
	if player != "" {
		req.Header.Set("X-Player", player)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestTurnHandler_Success(t *testing.T) {
	llm := services.NewMockLLMService()
	llm.Enqueue(`{"Description": "The tavern crowd parts as you stand up.", "Location": "Tavern", "Health": "100"}`)
	handler, store := newTestTurnHandler(llm)
	seedActiveGame(t, store)

	w := postTurn(handler, "kira", "fantasy", chat.TurnRequest{Command: "stand up"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp chat.TurnResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Narrative != "The tavern crowd parts as you stand up." {
		t.Errorf("unexpected narrative: %q", resp.Narrative)
	}
	if resp.GameState == nil {
		t.Error("expected game state in response")
	}
}

func TestTurnHandler_Validation(t *testing.T) {
	tests := []struct {
		name   string
		player string
		genre  string
		body   interface{}
		want   int
	}{
		{"missing player", "", "fantasy", chat.TurnRequest{Command: "look"}, http.StatusUnauthorized},
		{"bad genre", "kira", "western", chat.TurnRequest{Command: "look"}, http.StatusBadRequest},
		{"empty command", "kira", "fantasy", chat.TurnRequest{}, http.StatusBadRequest},
		{"junk body", "kira", "fantasy", "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := services.NewMockLLMService()
			handler, _ := newTestTurnHandler(llm)

			w := postTurn(handler, tt.player, tt.genre, tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if len(llm.Calls()) != 0 {
				t.Error("no LLM call may happen on validation failure")
			}
		})
	}
}

func TestTurnHandler_MethodNotAllowed(t *testing.T) {
	llm := services.NewMockLLMService()
	handler, _ := newTestTurnHandler(llm)

	req := httptest.NewRequest(http.MethodGet, "/v1/game/fantasy/turn", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestTurnHandler_UpstreamFailure(t *testing.T) {
	llm := services.NewMockLLMService()
	llm.SetChatError(context.DeadlineExceeded)
	handler, store := newTestTurnHandler(llm)
	seedActiveGame(t, store)

	w := postTurn(handler, "kira", "fantasy", chat.TurnRequest{Command: "look"})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp chat.TurnResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected error message in response")
	}

	// No row may be written when the upstream call fails.
	turns, _ := store.CountTurns(context.Background(), "kira", game.GenreFantasy.Label())
	if turns != 1 {
		t.Errorf("expected only the seeded turn row, got %d", turns)
	}
}
