package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/questforge/questforge/pkg/game"
)

const instructionKeyPrefix = "instructions:"

// defaultInstructions is the fallback when a document is missing from both
// the store and the seed directory.
const defaultInstructions = `You are a game master for a text-based adventure game.
Respond with immersive narrative and maintain game state in JSON format.
Always include game data like location, health, inventory, etc. in your response.`

// InstructionStore loads named instruction documents for the turn engine.
type InstructionStore interface {
	// Get returns the gameplay instruction template for a genre.
	Get(ctx context.Context, genre game.Genre) (string, error)
	// GetDoc returns an arbitrary named document (world/quest/clerk templates).
	GetDoc(ctx context.Context, key string) (string, error)
	// Invalidate clears the in-process cache; the next Get re-reads the store.
	Invalidate()
}

// InstructionService is a process-wide read-through cache over the Cache
// store. Documents are operator-updated, not player-mutated, so a single
// clear-all invalidation is sufficient.
type InstructionService struct {
	cache   Cache
	dataDir string
	logger  *slog.Logger

	mu   sync.RWMutex
	docs map[string]string
}

var _ InstructionStore = (*InstructionService)(nil)

func NewInstructionService(cache Cache, dataDir string, logger *slog.Logger) *InstructionService {
	return &InstructionService{
		cache:   cache,
		dataDir: dataDir,
		logger:  logger,
		docs:    make(map[string]string),
	}
}

// Seed writes documents from the data directory into the store for any key
// not already present. Called once on startup; thereafter operators edit
// the store directly.
func (s *InstructionService) Seed(ctx context.Context) error {
	dir := filepath.Join(s.dataDir, "instructions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("No instruction seed directory", "dir", dir)
			return nil
		}
		return fmt.Errorf("failed to read instruction seed dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		key := entry.Name()[:len(entry.Name())-4]
		exists, err := s.cache.Exists(ctx, instructionKeyPrefix+key)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			s.logger.Warn("Failed to read instruction seed file", "file", entry.Name(), "error", err)
			continue
		}
		if err := s.cache.Set(ctx, instructionKeyPrefix+key, string(data), 0); err != nil {
			return err
		}
		s.logger.Info("Seeded instruction document", "key", key)
	}
	return nil
}

func (s *InstructionService) Get(ctx context.Context, genre game.Genre) (string, error) {
	return s.GetDoc(ctx, genre.Config().InstructionsDoc)
}

func (s *InstructionService) GetDoc(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	if doc, ok := s.docs[key]; ok {
		s.mu.RUnlock()
		return doc, nil
	}
	s.mu.RUnlock()

	doc, err := s.cache.Get(ctx, instructionKeyPrefix+key)
	if err != nil {
		return "", fmt.Errorf("failed to load instruction document %q: %w", key, err)
	}
	if doc == "" {
		s.logger.Warn("Instruction document missing, using default", "key", key)
		doc = defaultInstructions
	}

	s.mu.Lock()
	s.docs[key] = doc
	s.mu.Unlock()
	return doc, nil
}

func (s *InstructionService) Invalidate() {
	s.mu.Lock()
	s.docs = make(map[string]string)
	s.mu.Unlock()
	s.logger.Info("Instruction cache invalidated")
}
