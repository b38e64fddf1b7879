package storage

import (
	"context"
	"testing"

	"github.com/questforge/questforge/pkg/game"
)

func TestMockStorage_ReturnedExitsAreCopies(t *testing.T) {
	store := NewMockStorage()
	ctx := context.Background()

	err := store.CreateLocations(ctx, []*game.Location{{
		Player: "kira", Genre: "fantasy", Name: "Tavern",
		Exits: map[string]string{"north": "Square"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, err := store.GetLocation(ctx, "kira", "fantasy", "Tavern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loc.Exits["north"] = "Sewer"
	loc.Exits["down"] = "Cellar"

	fresh, err := store.GetLocation(ctx, "kira", "fantasy", "Tavern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.Exits["north"] != "Square" || len(fresh.Exits) != 1 {
		t.Errorf("stored exits must not alias returned maps, got %v", fresh.Exits)
	}

	first, err := store.FirstLocation(ctx, "kira", "fantasy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first.Exits["east"] = "Alley"
	fresh, _ = store.GetLocation(ctx, "kira", "fantasy", "Tavern")
	if len(fresh.Exits) != 1 {
		t.Errorf("FirstLocation must also return a copy, got %v", fresh.Exits)
	}
}

func TestMockStorage_NilExitsStayNil(t *testing.T) {
	store := NewMockStorage()
	ctx := context.Background()

	err := store.CreateLocations(ctx, []*game.Location{{
		Player: "kira", Genre: "fantasy", Name: "Void",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loc, err := store.GetLocation(ctx, "kira", "fantasy", "Void")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Exits != nil {
		t.Errorf("expected nil exits, got %v", loc.Exits)
	}
}
