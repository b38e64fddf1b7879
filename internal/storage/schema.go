package storage

import (
	"context"
	"fmt"
)

// EnsureSchema creates the tables and indexes if they do not exist. The
// DDL is idempotent; schema evolution beyond additive changes should move
// to a dedicated migration tool.
func (p *PostgresStorage) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    player       TEXT NOT NULL,
    genre        TEXT NOT NULL,
    user_input   TEXT NOT NULL DEFAULT '',
    action       TEXT NOT NULL DEFAULT '',
    registered   TEXT NOT NULL DEFAULT '',
    name         TEXT NOT NULL DEFAULT '',
    gender       TEXT NOT NULL DEFAULT '',
    player_class TEXT NOT NULL DEFAULT '',
    race         TEXT NOT NULL DEFAULT '',
    turn         TEXT NOT NULL DEFAULT '',
    time_period  TEXT NOT NULL DEFAULT '',
    day_number   TEXT NOT NULL DEFAULT '',
    weather      TEXT NOT NULL DEFAULT '',
    health       TEXT NOT NULL DEFAULT '',
    gold         TEXT NOT NULL DEFAULT '',
    xp           TEXT NOT NULL DEFAULT '',
    ac           TEXT NOT NULL DEFAULT '',
    level        TEXT NOT NULL DEFAULT '',
    description  TEXT NOT NULL DEFAULT '',
    quest        TEXT NOT NULL DEFAULT '',
    location     TEXT NOT NULL DEFAULT '',
    stats        TEXT NOT NULL DEFAULT '',
    inventory    TEXT NOT NULL DEFAULT '',
    raw_response TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS locations (
    id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    player       TEXT NOT NULL,
    genre        TEXT NOT NULL,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    exits        JSONB NOT NULL DEFAULT '{}',
    visit_count  INTEGER NOT NULL DEFAULT 0,
    last_visited TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_location UNIQUE (player, genre, name)
);

CREATE TABLE IF NOT EXISTS quests (
    id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    player            TEXT NOT NULL,
    genre             TEXT NOT NULL,
    title             TEXT NOT NULL,
    description       TEXT NOT NULL DEFAULT '',
    starting_location TEXT NOT NULL DEFAULT '',
    related_locations JSONB NOT NULL DEFAULT '[]',
    required_items    JSONB NOT NULL DEFAULT '[]',
    success_condition TEXT NOT NULL DEFAULT '',
    xp_reward         INTEGER NOT NULL DEFAULT 100 CHECK (xp_reward BETWEEN 50 AND 500),
    status            TEXT NOT NULL DEFAULT 'available'
        CHECK (status IN ('available','active','completed','failed'))
);

CREATE TABLE IF NOT EXISTS picmaps (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    player     TEXT NOT NULL,
    genre      TEXT NOT NULL,
    location   TEXT NOT NULL,
    picfile    TEXT NOT NULL,
    CONSTRAINT uq_picmap UNIQUE (player, genre, location)
);

CREATE INDEX IF NOT EXISTS idx_turns_player_genre ON conversation_turns (player, genre, id DESC);
CREATE INDEX IF NOT EXISTS idx_turns_location ON conversation_turns (player, genre, location);
CREATE INDEX IF NOT EXISTS idx_locations_player_genre ON locations (player, genre);
CREATE INDEX IF NOT EXISTS idx_quests_player_genre ON quests (player, genre);
CREATE INDEX IF NOT EXISTS idx_quests_status ON quests (player, status);
CREATE INDEX IF NOT EXISTS idx_quests_start ON quests (starting_location);
`
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
