package logger

import (
	"log/slog"
	"os"

	"github.com/questforge/questforge/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		// JSON format for production
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Text format for development
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithPlayer adds player and genre context to a logger.
func WithPlayer(logger *slog.Logger, player, genre string) *slog.Logger {
	return logger.With("player", player, "genre", genre)
}
