package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/questforge/questforge/internal/services"
	"github.com/questforge/questforge/internal/storage"
	"github.com/questforge/questforge/pkg/chat"
	"github.com/questforge/questforge/pkg/game"
)

// Phase is the lifecycle state of one (player, genre) pair.
type Phase int

const (
	// PhaseUninitialized means no conversation rows and no locations exist.
	PhaseUninitialized Phase = iota
	// PhaseWorldPending means play has begun but the location graph is
	// missing and must be generated before the turn proceeds.
	PhaseWorldPending
	// PhaseActive is normal play.
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseWorldPending:
		return "world_pending"
	case PhaseActive:
		return "active"
	}
	return "unknown"
}

const (
	// lookAroundCommand replaces the player's first command after world
	// creation so the opening narrative is grounded in the new world.
	lookAroundCommand = "look around and describe where I am"

	turnMaxTokens   = 2500
	turnTemperature = 0.8

	asyncGenTimeout = 5 * time.Minute
)

// TurnResult is what one processed turn hands back to the HTTP layer.
type TurnResult struct {
	Narrative   string
	State       *game.GameState
	RawResponse string
}

// Orchestrator runs the full request/response cycle for one game turn:
// load prior state, build the prompt, call the model, reconcile the
// reply, persist the new row. One orchestrator serves all genres.
type Orchestrator struct {
	store        storage.Storage
	llm          services.LLMService
	instructions services.InstructionStore
	generator    *Generator
	locks        *KeyedMutex
	model        string
	logger       *slog.Logger

	// background collects async side effects (post-registration world
	// generation) so shutdown and tests can wait for them.
	background *errgroup.Group
}

func NewOrchestrator(store storage.Storage, llm services.LLMService, instructions services.InstructionStore, generator *Generator, model string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:        store,
		llm:          llm,
		instructions: instructions,
		generator:    generator,
		locks:        NewKeyedMutex(),
		model:        model,
		logger:       logger,
		background:   &errgroup.Group{},
	}
}

// Wait blocks until all background generation work has finished.
func (o *Orchestrator) Wait() error {
	return o.background.Wait()
}

func turnKey(player string, genre game.Genre) string {
	return player + "|" + genre.String()
}

// RunTurn processes one player command for one genre. Turns for the same
// (player, genre) pair are serialized; concurrent pairs run in parallel.
func (o *Orchestrator) RunTurn(ctx context.Context, player string, genre game.Genre, req *chat.TurnRequest) (*TurnResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := turnKey(player, genre)
	o.locks.Lock(key)
	defer o.locks.Unlock(key)

	log := o.logger.With("player", player, "genre", genre.String())
	command := strings.TrimSpace(req.Command)

	if IsNewGameCommand(command) {
		if err := o.purge(ctx, player, genre, log); err != nil {
			return nil, fmt.Errorf("purging previous game: %w", err)
		}
	}

	prev, err := o.loadState(ctx, player, genre, req.Location)
	if err != nil {
		return nil, err
	}

	phase, err := o.currentPhase(ctx, player, genre, prev)
	if err != nil {
		return nil, err
	}
	log.Debug("Turn begins", "phase", phase.String(), "command", command)

	// A missing world is generated synchronously before the command is
	// processed. Custom games wait for registration first; their clerk
	// interview needs no world. On the very first turn, the command is
	// swapped for a canonical look-around so the opening narrative is
	// grounded in the freshly created starting location.
	if phase != PhaseActive {
		locations, err := o.generator.GenerateWorld(ctx, player, genre, nil)
		if err != nil {
			return nil, fmt.Errorf("world generation failed: %w", err)
		}
		if len(locations) > 0 {
			o.generator.GenerateQuests(ctx, player, genre, locations)
		}
		if phase == PhaseUninitialized {
			command = lookAroundCommand
		}
	}

	clerkMode := genre == game.GenreCustom && !bool(prev.Registered)

	// A custom game's world is generated in the background after
	// registration, so the persisted location may not exist in it. Snap
	// an orphaned location to the world's first generated room.
	if !clerkMode {
		loc, err := o.store.GetLocation(ctx, player, genre.Label(), prev.Location)
		if err != nil {
			return nil, fmt.Errorf("loading location %q: %w", prev.Location, err)
		}
		if loc == nil {
			if first, err := o.store.FirstLocation(ctx, player, genre.Label()); err == nil && first != nil {
				log.Info("Snapping orphaned location to world start",
					"from", prev.Location, "to", first.Name)
				prev.Location = first.Name
			}
		}
	}

	// Movement commands move the prompt context to the destination before
	// the model is called, so it narrates arrival rather than departure.
	contextState := *prev
	expectedDest := ""
	if dir, ok := ParseDirection(command); ok && !clerkMode {
		exits, err := o.exitsFor(ctx, player, genre, prev.Location)
		if err != nil {
			return nil, err
		}
		if dest, found := ResolveExit(exits, dir); found {
			expectedDest = dest
			contextState.Location = dest
			log.Debug("Movement resolved", "direction", dir, "destination", dest)
		} else {
			contextState.Exits = exits
		}
	}

	if contextState.Exits == nil {
		exits, err := o.exitsFor(ctx, player, genre, contextState.Location)
		if err != nil {
			return nil, err
		}
		contextState.Exits = exits
	}

	instructions, err := o.instructionsFor(ctx, genre, clerkMode)
	if err != nil {
		return nil, err
	}
	if !clerkMode {
		instructions += o.questContext(ctx, player, genre, contextState.Location)
	}
	if expectedDest != "" {
		instructions += o.revisitContext(ctx, player, genre, expectedDest)
	}

	history, err := o.store.RecentTurns(ctx, player, genre.Label(), historyTurns)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	messages := BuildTurnMessages(instructions, &contextState, history, command)
	raw, err := o.llm.Chat(ctx, messages, services.ChatOptions{
		Model:       o.model,
		Temperature: turnTemperature,
		MaxTokens:   turnMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	parsed := ParseReply(raw)
	if parsed.Reply == nil {
		log.Warn("Reply carried no structured state, carrying previous state forward")
	}

	// Reconciliation starts from the movement-adjusted state so an
	// omitted Location falls back to the expected destination.
	result := Reconcile(&contextState, parsed.Reply, parsed.Narrative, raw)
	next := result.Next

	// Reconciliation ran against the destination, so a changed location
	// here means the reply wandered off the resolved exit.
	if expectedDest != "" && result.LocationChanged {
		log.Warn("Reply location diverges from resolved exit",
			"expected", expectedDest, "actual", next.Location)
	}

	// No location rows exist during the clerk interview; writing one
	// would trip the zero-count guard and block world generation later.
	if clerkMode {
		next.Exits = map[string]string{}
	} else if err := o.writeBack(ctx, player, genre, next, parsed.Reply); err != nil {
		return nil, err
	}

	turn := game.TurnFromState(next, req.Command, parsed.Narrative)
	if err := o.store.CreateTurn(ctx, turn); err != nil {
		// The model call already happened; it is not retried.
		return nil, fmt.Errorf("persisting turn: %w", err)
	}

	if !clerkMode && next.Quest != "" && next.Quest != contextState.Quest {
		o.markQuestActive(ctx, player, genre, next.Quest, log)
	}

	if result.RegistrationCompleted && genre == game.GenreCustom {
		o.spawnWorldGen(player, genre, seedFromReply(parsed.Reply), log)
	}

	return &TurnResult{
		Narrative:   parsed.Narrative,
		State:       next,
		RawResponse: raw,
	}, nil
}

// loadState derives the previous state from the latest conversation row,
// falling back to the genre's new-character template.
func (o *Orchestrator) loadState(ctx context.Context, player string, genre game.Genre, locationHint string) (*game.GameState, error) {
	latest, err := o.store.LatestTurn(ctx, player, genre.Label())
	if err != nil {
		return nil, fmt.Errorf("loading latest turn: %w", err)
	}
	if latest == nil {
		state := NewCharacterState(player, genre)
		if locationHint != "" {
			state.Location = locationHint
		}
		return state, nil
	}
	state := game.StateFromTurn(latest, player, genre)
	if state.Location == "" {
		state.Location = genre.Config().StartLocation
	}
	return state, nil
}

// currentPhase is the single place the lifecycle phase is derived.
func (o *Orchestrator) currentPhase(ctx context.Context, player string, genre game.Genre, prev *game.GameState) (Phase, error) {
	count, err := o.store.CountLocations(ctx, player, genre.Label())
	if err != nil {
		return PhaseUninitialized, fmt.Errorf("counting locations: %w", err)
	}
	if count > 0 {
		return PhaseActive, nil
	}
	// Custom games have no world until registration completes.
	if genre == game.GenreCustom && !bool(prev.Registered) {
		return PhaseActive, nil
	}
	if prevIsFresh(prev) {
		return PhaseUninitialized, nil
	}
	return PhaseWorldPending, nil
}

func prevIsFresh(prev *game.GameState) bool {
	return prev.Turn == "0" || prev.Turn == ""
}

func (o *Orchestrator) instructionsFor(ctx context.Context, genre game.Genre, clerkMode bool) (string, error) {
	if clerkMode {
		doc, err := o.instructions.GetDoc(ctx, genre.Config().ClerkDoc)
		if err != nil {
			return "", fmt.Errorf("loading clerk instructions: %w", err)
		}
		return doc, nil
	}
	doc, err := o.instructions.Get(ctx, genre)
	if err != nil {
		return "", fmt.Errorf("loading instructions: %w", err)
	}
	return doc, nil
}

// questContext renders the active quest and any quests available at the
// current location into extra system prompt text. Best effort; a quest
// store failure never blocks the turn.
func (o *Orchestrator) questContext(ctx context.Context, player string, genre game.Genre, location string) string {
	var sb strings.Builder
	if active, err := o.store.ActiveQuest(ctx, player, genre.Label()); err == nil && active != nil {
		fmt.Fprintf(&sb, "\n\nActive quest: %s. %s Success condition: %s",
			active.Title, active.Description, active.SuccessCondition)
	}
	if location != "" {
		if available, err := o.store.QuestsStartingAt(ctx, player, genre.Label(), location); err == nil && len(available) > 0 {
			sb.WriteString("\n\nQuests that can be discovered at this location:")
			for _, q := range available {
				fmt.Fprintf(&sb, "\n- %s (%d XP): %s", q.Title, q.XPReward, q.Description)
			}
		}
	}
	return sb.String()
}

// markQuestActive flips a generated quest to active when the narrative
// starts tracking it. Best effort; a miss just leaves the quest available.
func (o *Orchestrator) markQuestActive(ctx context.Context, player string, genre game.Genre, title string, log *slog.Logger) {
	quests, err := o.store.ListQuests(ctx, player, genre.Label())
	if err != nil {
		log.Warn("Listing quests for status sync failed", "error", err)
		return
	}
	for _, q := range quests {
		if q.Status != game.QuestAvailable || !strings.EqualFold(q.Title, title) {
			continue
		}
		if err := o.store.UpdateQuestStatus(ctx, q.ID, game.QuestActive); err != nil {
			log.Warn("Updating quest status failed", "quest", q.Title, "error", err)
		}
		return
	}
}

// revisitContext reminds the model what happened the last time the
// player was at the destination, so returning somewhere stays coherent.
func (o *Orchestrator) revisitContext(ctx context.Context, player string, genre game.Genre, location string) string {
	past, err := o.store.TurnsAtLocation(ctx, player, genre.Label(), location, 1)
	if err != nil || len(past) == 0 {
		return ""
	}
	last := past[len(past)-1]
	if strings.TrimSpace(last.Description) == "" {
		return ""
	}
	return fmt.Sprintf("\n\nThe player has visited %s before. What happened there last time: %s",
		location, last.Description)
}

// exitsFor loads the exits for a location, returning an empty map for
// unknown locations.
func (o *Orchestrator) exitsFor(ctx context.Context, player string, genre game.Genre, location string) (map[string]string, error) {
	if location == "" {
		return map[string]string{}, nil
	}
	loc, err := o.store.GetLocation(ctx, player, genre.Label(), location)
	if err != nil {
		return nil, fmt.Errorf("loading location %q: %w", location, err)
	}
	if loc == nil {
		return map[string]string{}, nil
	}
	return loc.Exits, nil
}

// writeBack upserts the current location row and re-derives exits from
// the store. The reply's exits are never persisted verbatim.
func (o *Orchestrator) writeBack(ctx context.Context, player string, genre game.Genre, next *game.GameState, reply *game.Reply) error {
	if next.Location != "" {
		loc := &game.Location{
			Player:      player,
			Genre:       genre.Label(),
			Name:        next.Location,
			Description: next.Description,
		}
		if reply != nil {
			loc.Exits = reply.Exits.ToMap()
		}
		if loc.Exits == nil {
			loc.Exits = map[string]string{}
		}
		if err := o.store.UpsertLocation(ctx, loc); err != nil {
			return fmt.Errorf("upserting location: %w", err)
		}
	}

	exits, err := o.exitsFor(ctx, player, genre, next.Location)
	if err != nil {
		return err
	}
	next.Exits = exits
	return nil
}

// purge deletes everything for (player, genre) before a fresh start.
func (o *Orchestrator) purge(ctx context.Context, player string, genre game.Genre, log *slog.Logger) error {
	turns, err := o.store.DeleteTurns(ctx, player, genre.Label())
	if err != nil {
		return err
	}
	locations, err := o.store.DeleteLocations(ctx, player, genre.Label())
	if err != nil {
		return err
	}
	quests, err := o.store.DeleteQuests(ctx, player, genre.Label())
	if err != nil {
		return err
	}
	log.Info("Game purged for restart", "turns", turns, "locations", locations, "quests", quests)
	return nil
}

// spawnWorldGen runs post-registration world and quest generation in the
// background, then plays an opening look-around turn so the player's next
// visit resumes inside the generated world. The registering turn's
// response does not wait on it. Generation holds the pair's turn lock so
// the zero-count guard cannot race a synchronous turn.
func (o *Orchestrator) spawnWorldGen(player string, genre game.Genre, seed *RegistrationSeed, log *slog.Logger) {
	log.Info("Registration complete, generating world in background")
	o.background.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), asyncGenTimeout)
		defer cancel()

		key := turnKey(player, genre)
		o.locks.Lock(key)
		locations, err := o.generator.GenerateWorld(ctx, player, genre, seed)
		if err != nil {
			o.locks.Unlock(key)
			log.Error("Background world generation failed", "error", err)
			return nil
		}
		if len(locations) > 0 {
			o.generator.GenerateQuests(ctx, player, genre, locations)
		}
		o.locks.Unlock(key)

		// RunTurn takes the lock itself.
		if _, err := o.RunTurn(ctx, player, genre, &chat.TurnRequest{Command: lookAroundCommand}); err != nil {
			log.Error("Post-registration opening turn failed", "error", err)
		}
		return nil
	})
}

func seedFromReply(reply *game.Reply) *RegistrationSeed {
	if reply == nil {
		return nil
	}
	return &RegistrationSeed{
		Setting:       reply.Setting.String(),
		Tone:          reply.Tone.String(),
		StartLocation: reply.StartLocation.String(),
		Currency:      reply.Currency.String(),
		OtherNotes:    reply.OtherNotes.String(),
	}
}
