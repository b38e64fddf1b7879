package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/questforge/questforge/pkg/game"
)

func testInstructionService(t *testing.T, dataDir string) (*InstructionService, *RedisService) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := NewRedisService(mr.Addr(), logger)
	t.Cleanup(func() { _ = cache.Close() })
	return NewInstructionService(cache, dataDir, logger), cache
}

func TestInstructionService_ReadThroughCache(t *testing.T) {
	svc, cache := testInstructionService(t, "")
	ctx := context.Background()

	if err := cache.Set(ctx, "instructions:instructions-fantasy", "fantasy rules v1", 0); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.Get(ctx, game.GenreFantasy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc != "fantasy rules v1" {
		t.Errorf("unexpected doc: %q", doc)
	}

	// The store is updated but the in-process cache still serves v1.
	if err := cache.Set(ctx, "instructions:instructions-fantasy", "fantasy rules v2", 0); err != nil {
		t.Fatal(err)
	}
	doc, _ = svc.Get(ctx, game.GenreFantasy)
	if doc != "fantasy rules v1" {
		t.Errorf("expected cached v1, got %q", doc)
	}

	// Invalidation re-reads the store.
	svc.Invalidate()
	doc, _ = svc.Get(ctx, game.GenreFantasy)
	if doc != "fantasy rules v2" {
		t.Errorf("expected v2 after invalidation, got %q", doc)
	}
}

func TestInstructionService_MissingDocFallsBack(t *testing.T) {
	svc, _ := testInstructionService(t, "")

	doc, err := svc.GetDoc(context.Background(), "world-fantasy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc != defaultInstructions {
		t.Errorf("expected default instructions, got %q", doc)
	}
}

func TestInstructionService_Seed(t *testing.T) {
	dataDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dataDir, "instructions"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "instructions", "instructions-scifi.txt"), []byte("scifi rules"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc, cache := testInstructionService(t, dataDir)
	ctx := context.Background()

	// A pre-existing key must not be overwritten by Seed.
	if err := cache.Set(ctx, "instructions:instructions-scifi", "operator edit", 0); err != nil {
		t.Fatal(err)
	}
	if err := svc.Seed(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, _ := svc.Get(ctx, game.GenreScifi)
	if doc != "operator edit" {
		t.Errorf("seed must not overwrite operator edits, got %q", doc)
	}

	// A fresh store gets the file contents.
	svc2, _ := testInstructionService(t, dataDir)
	if err := svc2.Seed(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, _ = svc2.Get(ctx, game.GenreScifi)
	if doc != "scifi rules" {
		t.Errorf("expected seeded doc, got %q", doc)
	}
}
