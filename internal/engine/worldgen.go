package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/questforge/questforge/internal/services"
	"github.com/questforge/questforge/internal/storage"
	"github.com/questforge/questforge/pkg/chat"
	"github.com/questforge/questforge/pkg/game"
)

const (
	worldGenMaxTokens   = 8000
	worldGenTemperature = 0.7
	questGenMaxTokens   = 4000
)

// RegistrationSeed carries the character-creation answers a custom game
// collects before its world exists. The fields are interpolated into the
// world generation prompt.
type RegistrationSeed struct {
	Setting       string
	Tone          string
	StartLocation string
	Currency      string
	OtherNotes    string
}

// Generator batch-creates the location graph and quest list for a fresh
// player and genre pair.
type Generator struct {
	llm          services.LLMService
	store        storage.Storage
	instructions services.InstructionStore
	model        string
	logger       *slog.Logger
}

func NewGenerator(llm services.LLMService, store storage.Storage, instructions services.InstructionStore, model string, logger *slog.Logger) *Generator {
	return &Generator{
		llm:          llm,
		store:        store,
		instructions: instructions,
		model:        model,
		logger:       logger,
	}
}

type locationPayload struct {
	Name        game.FlexString    `json:"name"`
	Description game.FlexString    `json:"description"`
	Exits       game.FlexStringMap `json:"exits"`
}

type questPayload struct {
	Title            game.FlexString  `json:"title"`
	Description      game.FlexString  `json:"description"`
	StartingLocation game.FlexString  `json:"starting_location"`
	RelatedLocations game.FlexStrings `json:"related_locations"`
	RequiredItems    game.FlexStrings `json:"required_items"`
	SuccessCondition game.FlexString  `json:"success_condition"`
	XPReward         int              `json:"xp_reward"`
}

// GenerateWorld creates the location graph for (player, genre). It is a
// no-op when locations already exist, so a double-fired trigger cannot
// generate twice. An unparsable batch is a hard error; a partial world
// must never be persisted.
func (g *Generator) GenerateWorld(ctx context.Context, player string, genre game.Genre, seed *RegistrationSeed) ([]*game.Location, error) {
	count, err := g.store.CountLocations(ctx, player, genre.Label())
	if err != nil {
		return nil, fmt.Errorf("checking existing locations: %w", err)
	}
	if count > 0 {
		g.logger.Info("World already generated, skipping",
			"player", player, "genre", genre.String(), "locations", count)
		return nil, nil
	}

	cfg := genre.Config()
	instructions, err := g.instructions.GetDoc(ctx, cfg.WorldDoc)
	if err != nil {
		return nil, fmt.Errorf("loading world instructions: %w", err)
	}

	prompt := instructions
	if seed != nil {
		prompt += "\n\n" + seed.promptBlock()
	}

	g.logger.Info("Generating world", "player", player, "genre", genre.String())
	raw, err := g.llm.Chat(ctx, []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: prompt},
		{Role: chat.ChatRoleUser, Content: "Generate the world now."},
	}, services.ChatOptions{
		Model:       g.model,
		Temperature: worldGenTemperature,
		MaxTokens:   worldGenMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("world generation completion: %w", err)
	}

	var payloads []locationPayload
	if err := ParseLenientArray(raw, &payloads); err != nil {
		return nil, fmt.Errorf("parsing world batch: %w", err)
	}

	locations := make([]*game.Location, 0, len(payloads))
	for _, p := range payloads {
		name := strings.TrimSpace(p.Name.String())
		if name == "" {
			continue
		}
		exits := p.Exits.ToMap()
		if exits == nil {
			exits = map[string]string{}
		}
		locations = append(locations, &game.Location{
			Player:      player,
			Genre:       genre.Label(),
			Name:        name,
			Description: p.Description.String(),
			Exits:       exits,
		})
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("world batch contained no usable locations")
	}

	if err := g.store.CreateLocations(ctx, locations); err != nil {
		return nil, fmt.Errorf("inserting locations: %w", err)
	}
	g.logger.Info("World generated", "player", player, "genre", genre.String(), "locations", len(locations))
	return locations, nil
}

// GenerateQuests creates the quest list for an already-generated world.
// Failures are logged and swallowed; a world with no quests is a
// playable degraded state.
func (g *Generator) GenerateQuests(ctx context.Context, player string, genre game.Genre, locations []*game.Location) []*game.Quest {
	cfg := genre.Config()
	instructions, err := g.instructions.GetDoc(ctx, cfg.QuestDoc)
	if err != nil {
		g.logger.Warn("Quest instructions unavailable, skipping quest generation",
			"player", player, "genre", genre.String(), "error", err)
		return nil
	}

	names := make([]string, 0, len(locations))
	for _, loc := range locations {
		names = append(names, loc.Name)
	}
	prompt := instructions + "\n\nAvailable locations:\n" + strings.Join(names, "\n")

	raw, err := g.llm.Chat(ctx, []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: prompt},
		{Role: chat.ChatRoleUser, Content: "Generate the quests now."},
	}, services.ChatOptions{
		Model:       g.model,
		Temperature: worldGenTemperature,
		MaxTokens:   questGenMaxTokens,
	})
	if err != nil {
		g.logger.Warn("Quest generation completion failed",
			"player", player, "genre", genre.String(), "error", err)
		return nil
	}

	var payloads []questPayload
	if err := ParseLenientArray(raw, &payloads); err != nil {
		g.logger.Warn("Quest batch unparsable, continuing without quests",
			"player", player, "genre", genre.String(), "error", err)
		return nil
	}

	quests := make([]*game.Quest, 0, len(payloads))
	for _, p := range payloads {
		title := strings.TrimSpace(p.Title.String())
		if title == "" {
			continue
		}
		quests = append(quests, &game.Quest{
			Player:           player,
			Genre:            genre.Label(),
			Title:            title,
			Description:      p.Description.String(),
			StartingLocation: p.StartingLocation.String(),
			RelatedLocations: p.RelatedLocations,
			RequiredItems:    p.RequiredItems,
			SuccessCondition: p.SuccessCondition.String(),
			XPReward:         game.ClampXP(p.XPReward),
			Status:           game.QuestAvailable,
		})
	}
	if len(quests) == 0 {
		return nil
	}

	if err := g.store.CreateQuests(ctx, quests); err != nil {
		g.logger.Warn("Quest insertion failed, continuing without quests",
			"player", player, "genre", genre.String(), "error", err)
		return nil
	}
	g.logger.Info("Quests generated", "player", player, "genre", genre.String(), "quests", len(quests))
	return quests
}

func (s *RegistrationSeed) promptBlock() string {
	var sb strings.Builder
	sb.WriteString("World seed from character registration:\n")
	writeSeedLine(&sb, "Setting", s.Setting)
	writeSeedLine(&sb, "Tone", s.Tone)
	writeSeedLine(&sb, "Starting location", s.StartLocation)
	writeSeedLine(&sb, "Currency", s.Currency)
	writeSeedLine(&sb, "Other notes", s.OtherNotes)
	return sb.String()
}

func writeSeedLine(sb *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteString("\n")
}
