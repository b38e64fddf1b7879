package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/questforge/questforge/internal/config"
	"github.com/questforge/questforge/internal/engine"
	"github.com/questforge/questforge/internal/handlers"
	"github.com/questforge/questforge/internal/images"
	"github.com/questforge/questforge/internal/logger"
	"github.com/questforge/questforge/internal/middleware"
	"github.com/questforge/questforge/internal/services"
	"github.com/questforge/questforge/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logg := logger.Setup(cfg)

	logg.Info("Starting QuestForge API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"model_name", cfg.ModelName)

	llmService := services.NewOpenAIService(cfg.OpenAIAPIKey, logg)

	cache := services.NewRedisService(cfg.RedisURL, logg)
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cacheCancel()
	if err := cache.WaitForConnection(cacheCtx); err != nil {
		logg.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	logg.Info("Redis connection established")

	storeCtx, storeCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storeCancel()
	store, err := storage.NewPostgresStorage(storeCtx, cfg.PostgresDSN, logg)
	if err != nil {
		logg.Error("Failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureSchema(storeCtx); err != nil {
		logg.Error("Failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logg.Info("Postgres connection established")

	instructions := services.NewInstructionService(cache, cfg.DataDir, logg)
	if err := instructions.Seed(storeCtx); err != nil {
		logg.Error("Failed to seed instruction documents", "error", err)
		os.Exit(1)
	}

	generator := engine.NewGenerator(llmService, store, instructions, cfg.WorldModelName, logg)
	orchestrator := engine.NewOrchestrator(store, llmService, instructions, generator, cfg.ModelName, logg)
	pipeline := images.NewPipeline(llmService, store, cfg.UploadPath, cfg.StaticURL, logg)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(cache, store, logg))

	turnHandler := handlers.NewTurnHandler(orchestrator, cfg.IsProduction(), logg)
	imageHandler := handlers.NewImageHandler(pipeline, logg)
	stateHandler := handlers.NewStateHandler(store, logg)
	restartHandler := handlers.NewRestartHandler(store, logg)
	for _, genre := range []string{"fantasy", "scifi", "mystery", "custom"} {
		mux.Handle("/v1/game/"+genre+"/turn", turnHandler)
		mux.Handle("/v1/game/"+genre+"/image", imageHandler)
		mux.Handle("/v1/game/"+genre+"/state", stateHandler)
		mux.Handle("/v1/game/"+genre+"/restart", restartHandler)
	}
	mux.Handle("/v1/game/wipe", handlers.NewWipeHandler(store, instructions, logg))

	mux.Handle("/v1/admin/instructions/invalidate", handlers.NewAdminHandler(instructions, logg))

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.UploadPath))))

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logg.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Server is shutting down...")

	// Let in-flight background world generation finish before closing
	// the stores it writes to.
	if err := orchestrator.Wait(); err != nil {
		logg.Error("Background generation error during shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		logg.Error("Error closing postgres connection", "error", err)
	}
	if err := cache.Close(); err != nil {
		logg.Error("Error closing redis connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logg.Info("Server exited")
}
