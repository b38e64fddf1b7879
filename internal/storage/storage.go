package storage

import (
	"context"

	"github.com/questforge/questforge/pkg/game"
)

// Storage is the persistence gateway for the turn engine: the conversation
// log, the location graph, the quest table, and the image map. All
// collections are scoped by (player, genre label).
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Conversation log (append-only)
	CreateTurn(ctx context.Context, t *game.ConversationTurn) error
	// LatestTurn returns the most recent row, or nil when none exists.
	LatestTurn(ctx context.Context, player, genre string) (*game.ConversationTurn, error)
	// RecentTurns returns up to limit rows ordered oldest first.
	RecentTurns(ctx context.Context, player, genre string, limit int) ([]*game.ConversationTurn, error)
	// TurnsAtLocation returns up to limit rows for one location, oldest first.
	TurnsAtLocation(ctx context.Context, player, genre, location string, limit int) ([]*game.ConversationTurn, error)
	CountTurns(ctx context.Context, player, genre string) (int, error)
	DeleteTurns(ctx context.Context, player, genre string) (int, error)

	// Location graph
	GetLocation(ctx context.Context, player, genre, name string) (*game.Location, error)
	// FirstLocation returns the earliest created location, or nil when the
	// world has not been generated.
	FirstLocation(ctx context.Context, player, genre string) (*game.Location, error)
	CountLocations(ctx context.Context, player, genre string) (int, error)
	// CreateLocations bulk-inserts with ignore-duplicate semantics on
	// (player, genre, name).
	CreateLocations(ctx context.Context, locations []*game.Location) error
	// UpsertLocation creates the row if absent, otherwise refreshes the
	// description and bumps visit_count / last_visited.
	UpsertLocation(ctx context.Context, loc *game.Location) error
	DeleteLocations(ctx context.Context, player, genre string) (int, error)

	// Quests
	CreateQuests(ctx context.Context, quests []*game.Quest) error
	ListQuests(ctx context.Context, player, genre string) ([]*game.Quest, error)
	// ActiveQuest returns the current active quest, or nil.
	ActiveQuest(ctx context.Context, player, genre string) (*game.Quest, error)
	// QuestsStartingAt returns available quests whose starting location matches.
	QuestsStartingAt(ctx context.Context, player, genre, location string) ([]*game.Quest, error)
	UpdateQuestStatus(ctx context.Context, id int64, status game.QuestStatus) error
	DeleteQuests(ctx context.Context, player, genre string) (int, error)

	// Image map (idempotent per player+genre+location)
	GetPicmap(ctx context.Context, player, genre, location string) (string, error)
	SavePicmap(ctx context.Context, player, genre, location, file string) error
	DeletePicmaps(ctx context.Context, player string) (int, error)
}
