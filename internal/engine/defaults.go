package engine

import "github.com/questforge/questforge/pkg/game"

// NewCharacterState returns the default state template for a brand-new
// character in the given genre. This is the only place initial stats,
// inventory, and starting-location defaults live.
func NewCharacterState(player string, genre game.Genre) *game.GameState {
	cfg := genre.Config()
	return &game.GameState{
		Player:     player,
		Genre:      genre,
		GenreLabel: cfg.Label,
		Turn:       "0",
		TimePeriod: "morning",
		Day:        "1",
		Weather:    "sunny",
		Health:     "100",
		Gold:       "10",
		XP:         "0",
		ArmorClass: "10",
		Level:      "1",
		Location:   cfg.StartLocation,
		Exits:      map[string]string{},
		Stats:      map[string]string{},
		Inventory:  []string{"pocket-lint"},
	}
}
