package images

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/questforge/questforge/internal/services"
	"github.com/questforge/questforge/internal/storage"
	"github.com/questforge/questforge/pkg/game"
)

func newTestPipeline(t *testing.T, llm *services.MockLLMService) (*Pipeline, *storage.MockStorage, string) {
	t.Helper()
	uploadDir := t.TempDir()

	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png bytes"))
	}))
	t.Cleanup(imageServer.Close)

	llm.GenerateImageFunc = func(ctx context.Context, prompt string, opts services.ImageOptions) (string, error) {
		return imageServer.URL + "/generated.png", nil
	}

	store := storage.NewMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPipeline(llm, store, uploadDir, "/static", logger), store, uploadDir
}

func TestImageFor_GeneratesAndCaches(t *testing.T) {
	llm := services.NewMockLLMService()
	p, _, uploadDir := newTestPipeline(t, llm)
	ctx := context.Background()

	url, err := p.ImageFor(ctx, "kira", game.GenreFantasy, "Tavern", "a smoky tavern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(url, "/static/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("unexpected url: %q", url)
	}

	// The file landed in the upload directory.
	filename := strings.TrimPrefix(url, "/static/")
	data, err := os.ReadFile(filepath.Join(uploadDir, filename))
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if string(data) != "png bytes" {
		t.Errorf("unexpected file contents: %q", data)
	}

	// A second request is served from the cache, not regenerated.
	url2, err := p.ImageFor(ctx, "kira", game.GenreFantasy, "Tavern", "different description")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url2 != url {
		t.Errorf("expected cached url %q, got %q", url, url2)
	}
	if len(llm.ImageCalls) != 1 {
		t.Errorf("expected exactly 1 generation call, got %d", len(llm.ImageCalls))
	}
}

func TestImageFor_PromptCarriesGenreStyle(t *testing.T) {
	llm := services.NewMockLLMService()
	p, _, _ := newTestPipeline(t, llm)

	_, err := p.ImageFor(context.Background(), "kira", game.GenreMystery, "Newspaper Office", "desks and typewriters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(llm.ImageCalls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(llm.ImageCalls))
	}
	prompt := llm.ImageCalls[0]
	if !strings.Contains(prompt, "noir") {
		t.Errorf("prompt should carry the genre style: %q", prompt)
	}
	if !strings.Contains(prompt, "Newspaper Office") {
		t.Errorf("prompt should carry the location: %q", prompt)
	}
}

func TestImageFor_EmptyLocation(t *testing.T) {
	llm := services.NewMockLLMService()
	p, _, _ := newTestPipeline(t, llm)

	if _, err := p.ImageFor(context.Background(), "kira", game.GenreFantasy, "", "x"); err == nil {
		t.Fatal("expected error for empty location")
	}
}
