package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/questforge/questforge/pkg/game"
)

// PostgresStorage implements the Storage interface on a pgx connection pool.
type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Storage = (*PostgresStorage)(nil)

// NewPostgresStorage connects to postgres and verifies the connection.
func NewPostgresStorage(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

func (p *PostgresStorage) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	p.logger.Info("Postgres connection closed")
	return nil
}

const turnColumns = `id, created_at, player, genre, user_input, action, registered,
name, gender, player_class, race, turn, time_period, day_number, weather,
health, gold, xp, ac, level, description, quest, location, stats, inventory, raw_response`

func scanTurn(row pgx.Row) (*game.ConversationTurn, error) {
	var t game.ConversationTurn
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.Player, &t.Genre, &t.UserInput, &t.Action, &t.Registered,
		&t.Name, &t.Gender, &t.PlayerClass, &t.Race, &t.Turn, &t.TimePeriod, &t.DayNumber, &t.Weather,
		&t.Health, &t.Gold, &t.XP, &t.AC, &t.Level, &t.Description, &t.Quest, &t.Location,
		&t.Stats, &t.Inventory, &t.RawResponse,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *PostgresStorage) CreateTurn(ctx context.Context, t *game.ConversationTurn) error {
	query := `
INSERT INTO conversation_turns (player, genre, user_input, action, registered,
    name, gender, player_class, race, turn, time_period, day_number, weather,
    health, gold, xp, ac, level, description, quest, location, stats, inventory, raw_response)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
RETURNING id, created_at`
	err := p.pool.QueryRow(ctx, query,
		t.Player, t.Genre, t.UserInput, t.Action, t.Registered,
		t.Name, t.Gender, t.PlayerClass, t.Race, t.Turn, t.TimePeriod, t.DayNumber, t.Weather,
		t.Health, t.Gold, t.XP, t.AC, t.Level, t.Description, t.Quest, t.Location,
		t.Stats, t.Inventory, t.RawResponse,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating conversation turn: %w", err)
	}
	return nil
}

func (p *PostgresStorage) LatestTurn(ctx context.Context, player, genre string) (*game.ConversationTurn, error) {
	query := fmt.Sprintf(`SELECT %s FROM conversation_turns WHERE player = $1 AND genre = $2 ORDER BY id DESC LIMIT 1`, turnColumns)
	t, err := scanTurn(p.pool.QueryRow(ctx, query, player, genre))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest turn: %w", err)
	}
	return t, nil
}

func (p *PostgresStorage) RecentTurns(ctx context.Context, player, genre string, limit int) ([]*game.ConversationTurn, error) {
	query := fmt.Sprintf(`SELECT %s FROM (
    SELECT %s FROM conversation_turns
    WHERE player = $1 AND genre = $2 AND description <> ''
    ORDER BY id DESC LIMIT $3
) sub ORDER BY id ASC`, turnColumns, turnColumns)
	return p.queryTurns(ctx, query, player, genre, limit)
}

func (p *PostgresStorage) TurnsAtLocation(ctx context.Context, player, genre, location string, limit int) ([]*game.ConversationTurn, error) {
	query := fmt.Sprintf(`SELECT %s FROM (
    SELECT %s FROM conversation_turns
    WHERE player = $1 AND genre = $2 AND location = $3
    ORDER BY id DESC LIMIT $4
) sub ORDER BY id ASC`, turnColumns, turnColumns)
	return p.queryTurns(ctx, query, player, genre, location, limit)
}

func (p *PostgresStorage) queryTurns(ctx context.Context, query string, args ...interface{}) ([]*game.ConversationTurn, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []*game.ConversationTurn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turn rows: %w", err)
	}
	return turns, nil
}

func (p *PostgresStorage) CountTurns(ctx context.Context, player, genre string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM conversation_turns WHERE player = $1 AND genre = $2`,
		player, genre).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting turns: %w", err)
	}
	return n, nil
}

func (p *PostgresStorage) DeleteTurns(ctx context.Context, player, genre string) (int, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM conversation_turns WHERE player = $1 AND genre = $2`,
		player, genre)
	if err != nil {
		return 0, fmt.Errorf("deleting turns: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Location graph

func (p *PostgresStorage) GetLocation(ctx context.Context, player, genre, name string) (*game.Location, error) {
	query := `SELECT id, player, genre, name, description, exits, visit_count, last_visited
FROM locations WHERE player = $1 AND genre = $2 AND name = $3`
	loc, err := scanLocation(p.pool.QueryRow(ctx, query, player, genre, name))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading location %q: %w", name, err)
	}
	return loc, nil
}

func (p *PostgresStorage) FirstLocation(ctx context.Context, player, genre string) (*game.Location, error) {
	query := `SELECT id, player, genre, name, description, exits, visit_count, last_visited
FROM locations WHERE player = $1 AND genre = $2 ORDER BY id ASC LIMIT 1`
	loc, err := scanLocation(p.pool.QueryRow(ctx, query, player, genre))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading first location: %w", err)
	}
	return loc, nil
}

func scanLocation(row pgx.Row) (*game.Location, error) {
	var loc game.Location
	var exits []byte
	err := row.Scan(&loc.ID, &loc.Player, &loc.Genre, &loc.Name, &loc.Description,
		&exits, &loc.VisitCount, &loc.LastVisited)
	if err != nil {
		return nil, err
	}
	if len(exits) > 0 {
		if err := json.Unmarshal(exits, &loc.Exits); err != nil {
			return nil, fmt.Errorf("unmarshaling exits: %w", err)
		}
	}
	if loc.Exits == nil {
		loc.Exits = map[string]string{}
	}
	return &loc, nil
}

func (p *PostgresStorage) CountLocations(ctx context.Context, player, genre string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM locations WHERE player = $1 AND genre = $2`,
		player, genre).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting locations: %w", err)
	}
	return n, nil
}

func (p *PostgresStorage) CreateLocations(ctx context.Context, locations []*game.Location) error {
	batch := &pgx.Batch{}
	for _, loc := range locations {
		exits, err := json.Marshal(loc.Exits)
		if err != nil {
			return fmt.Errorf("marshaling exits for %q: %w", loc.Name, err)
		}
		batch.Queue(`
INSERT INTO locations (player, genre, name, description, exits)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (player, genre, name) DO NOTHING`,
			loc.Player, loc.Genre, loc.Name, loc.Description, exits)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range locations {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("bulk inserting locations: %w", err)
		}
	}
	return nil
}

func (p *PostgresStorage) UpsertLocation(ctx context.Context, loc *game.Location) error {
	exits, err := json.Marshal(loc.Exits)
	if err != nil {
		return fmt.Errorf("marshaling exits: %w", err)
	}
	query := `
INSERT INTO locations (player, genre, name, description, exits, visit_count, last_visited)
VALUES ($1, $2, $3, $4, $5, 1, now())
ON CONFLICT (player, genre, name) DO UPDATE SET
    description = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE locations.description END,
    visit_count = locations.visit_count + 1,
    last_visited = now()`
	if _, err := p.pool.Exec(ctx, query, loc.Player, loc.Genre, loc.Name, loc.Description, exits); err != nil {
		return fmt.Errorf("upserting location %q: %w", loc.Name, err)
	}
	return nil
}

func (p *PostgresStorage) DeleteLocations(ctx context.Context, player, genre string) (int, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM locations WHERE player = $1 AND genre = $2`, player, genre)
	if err != nil {
		return 0, fmt.Errorf("deleting locations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Quests

func (p *PostgresStorage) CreateQuests(ctx context.Context, quests []*game.Quest) error {
	batch := &pgx.Batch{}
	for _, q := range quests {
		related, err := json.Marshal(orEmpty(q.RelatedLocations))
		if err != nil {
			return fmt.Errorf("marshaling related locations: %w", err)
		}
		items, err := json.Marshal(orEmpty(q.RequiredItems))
		if err != nil {
			return fmt.Errorf("marshaling required items: %w", err)
		}
		status := q.Status
		if status == "" {
			status = game.QuestAvailable
		}
		batch.Queue(`
INSERT INTO quests (player, genre, title, description, starting_location,
    related_locations, required_items, success_condition, xp_reward, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			q.Player, q.Genre, q.Title, q.Description, q.StartingLocation,
			related, items, q.SuccessCondition, game.ClampXP(q.XPReward), status)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range quests {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("bulk inserting quests: %w", err)
		}
	}
	return nil
}

const questColumns = `id, player, genre, title, description, starting_location,
related_locations, required_items, success_condition, xp_reward, status`

func scanQuest(row pgx.Row) (*game.Quest, error) {
	var q game.Quest
	var related, items []byte
	err := row.Scan(&q.ID, &q.Player, &q.Genre, &q.Title, &q.Description, &q.StartingLocation,
		&related, &items, &q.SuccessCondition, &q.XPReward, &q.Status)
	if err != nil {
		return nil, err
	}
	if len(related) > 0 {
		_ = json.Unmarshal(related, &q.RelatedLocations)
	}
	if len(items) > 0 {
		_ = json.Unmarshal(items, &q.RequiredItems)
	}
	return &q, nil
}

func (p *PostgresStorage) ListQuests(ctx context.Context, player, genre string) ([]*game.Quest, error) {
	query := fmt.Sprintf(`SELECT %s FROM quests WHERE player = $1 AND genre = $2 ORDER BY id ASC`, questColumns)
	return p.queryQuests(ctx, query, player, genre)
}

func (p *PostgresStorage) ActiveQuest(ctx context.Context, player, genre string) (*game.Quest, error) {
	query := fmt.Sprintf(`SELECT %s FROM quests WHERE player = $1 AND genre = $2 AND status = 'active' ORDER BY id ASC LIMIT 1`, questColumns)
	q, err := scanQuest(p.pool.QueryRow(ctx, query, player, genre))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading active quest: %w", err)
	}
	return q, nil
}

func (p *PostgresStorage) QuestsStartingAt(ctx context.Context, player, genre, location string) ([]*game.Quest, error) {
	query := fmt.Sprintf(`SELECT %s FROM quests
WHERE player = $1 AND genre = $2 AND starting_location = $3 AND status = 'available'
ORDER BY id ASC`, questColumns)
	return p.queryQuests(ctx, query, player, genre, location)
}

func (p *PostgresStorage) queryQuests(ctx context.Context, query string, args ...interface{}) ([]*game.Quest, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying quests: %w", err)
	}
	defer rows.Close()

	var quests []*game.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning quest: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quest rows: %w", err)
	}
	return quests, nil
}

func (p *PostgresStorage) UpdateQuestStatus(ctx context.Context, id int64, status game.QuestStatus) error {
	tag, err := p.pool.Exec(ctx, `UPDATE quests SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating quest status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("quest %d not found", id)
	}
	return nil
}

func (p *PostgresStorage) DeleteQuests(ctx context.Context, player, genre string) (int, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM quests WHERE player = $1 AND genre = $2`, player, genre)
	if err != nil {
		return 0, fmt.Errorf("deleting quests: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Image map

func (p *PostgresStorage) GetPicmap(ctx context.Context, player, genre, location string) (string, error) {
	var file string
	err := p.pool.QueryRow(ctx,
		`SELECT picfile FROM picmaps WHERE player = $1 AND genre = $2 AND location = $3`,
		player, genre, location).Scan(&file)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading picmap: %w", err)
	}
	return file, nil
}

func (p *PostgresStorage) SavePicmap(ctx context.Context, player, genre, location, file string) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO picmaps (player, genre, location, picfile)
VALUES ($1, $2, $3, $4)
ON CONFLICT (player, genre, location) DO NOTHING`,
		player, genre, location, file)
	if err != nil {
		return fmt.Errorf("saving picmap: %w", err)
	}
	return nil
}

func (p *PostgresStorage) DeletePicmaps(ctx context.Context, player string) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM picmaps WHERE player = $1`, player)
	if err != nil {
		return 0, fmt.Errorf("deleting picmaps: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
