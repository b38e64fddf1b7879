package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/questforge/questforge/internal/services"
	"github.com/questforge/questforge/internal/storage"
	"github.com/questforge/questforge/pkg/game"
)

const downloadTimeout = 60 * time.Second

// Pipeline generates and caches one illustrative image per (player,
// genre, location). Repeated requests return the cached file instead of
// regenerating.
type Pipeline struct {
	llm        services.LLMService
	store      storage.Storage
	uploadPath string
	staticURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewPipeline(llm services.LLMService, store storage.Storage, uploadPath, staticURL string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		llm:        llm,
		store:      store,
		uploadPath: uploadPath,
		staticURL:  strings.TrimRight(staticURL, "/"),
		httpClient: &http.Client{Timeout: downloadTimeout},
		logger:     logger,
	}
}

// ImageFor returns the public URL of the illustration for a location,
// generating and caching it on first request.
func (p *Pipeline) ImageFor(ctx context.Context, player string, genre game.Genre, location, description string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("location is required")
	}

	cached, err := p.store.GetPicmap(ctx, player, genre.Label(), location)
	if err != nil {
		return "", fmt.Errorf("checking image cache: %w", err)
	}
	if cached != "" {
		return p.staticURL + "/" + cached, nil
	}

	prompt := buildImagePrompt(genre, location, description)
	imageURL, err := p.llm.GenerateImage(ctx, prompt, services.ImageOptions{Size: "1024x1024", Count: 1})
	if err != nil {
		return "", fmt.Errorf("generating image: %w", err)
	}

	filename := uuid.New().String() + ".png"
	if err := p.download(ctx, imageURL, filename); err != nil {
		return "", fmt.Errorf("downloading image: %w", err)
	}

	if err := p.store.SavePicmap(ctx, player, genre.Label(), location, filename); err != nil {
		// The file is on disk; a cache miss later regenerates rather than
		// serving something broken.
		p.logger.Warn("Failed to record image cache entry",
			"player", player, "location", location, "error", err)
	}

	p.logger.Info("Image generated", "player", player, "genre", genre.String(),
		"location", location, "file", filename)
	return p.staticURL + "/" + filename, nil
}

func buildImagePrompt(genre game.Genre, location, description string) string {
	var sb strings.Builder
	sb.WriteString("An illustration of ")
	sb.WriteString(location)
	if strings.TrimSpace(description) != "" {
		sb.WriteString(": ")
		sb.WriteString(description)
	}
	sb.WriteString(". Style: ")
	sb.WriteString(genre.Config().ImageStyle)
	sb.WriteString(". No text or captions in the image.")
	return sb.String()
}

func (p *Pipeline) download(ctx context.Context, url, filename string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(p.uploadPath, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(p.uploadPath, filename))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return nil
}
