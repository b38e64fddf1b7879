package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// LLM provider
	OpenAIAPIKey   string
	ModelName      string // per-turn narrative model
	WorldModelName string // batch world/quest generation model

	// Persistence
	PostgresDSN string
	RedisURL    string

	// Static resources
	DataDir    string // instruction document seed files
	UploadPath string // generated image files
	StaticURL  string // public prefix for generated images
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		ModelName:      getEnv("MODEL_NAME", "gpt-4o-mini"),
		WorldModelName: getEnv("WORLD_MODEL_NAME", "gpt-4o-mini"),
		PostgresDSN:    getEnv("POSTGRES_DSN", "postgres://localhost:5432/questforge"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		UploadPath:     getEnv("UPLOAD_PATH", "./public/uploaded_files"),
		StaticURL:      getEnv("STATIC_URL", "/static/uploaded_files/"),
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
