package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL string
	Player     string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Player:     getEnv("PLAYER", ""),
		Timeout:    120 * time.Second,
	}

	if cfg.Player == "" {
		fmt.Print("Player name: ")
		if _, err := fmt.Scanln(&cfg.Player); err != nil || cfg.Player == "" {
			fmt.Fprintf(os.Stderr, "A player name is required\n")
			os.Exit(1)
		}
	}

	client := newAPIClient(cfg)

	if !client.Healthy() {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
