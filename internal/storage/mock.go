package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/questforge/questforge/pkg/game"
)

// MockStorage is an in-memory Storage for tests. All methods are
// safe for concurrent use. Set Err to make every call fail.
type MockStorage struct {
	mu sync.Mutex

	Err error

	// CreateTurnErr fails only CreateTurn, for write-path failure tests.
	CreateTurnErr error

	turns     []*game.ConversationTurn
	locations []*game.Location
	quests    []*game.Quest
	picmaps   map[string]string

	nextTurnID  int64
	nextLocID   int64
	nextQuestID int64
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{picmaps: make(map[string]string)}
}

func (m *MockStorage) Ping(ctx context.Context) error { return m.Err }
func (m *MockStorage) Close() error                   { return nil }

func (m *MockStorage) CreateTurn(ctx context.Context, t *game.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.CreateTurnErr != nil {
		return m.CreateTurnErr
	}
	m.nextTurnID++
	t.ID = m.nextTurnID
	t.CreatedAt = time.Now()
	cp := *t
	m.turns = append(m.turns, &cp)
	return nil
}

func (m *MockStorage) LatestTurn(ctx context.Context, player, genre string) (*game.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := len(m.turns) - 1; i >= 0; i-- {
		if m.turns[i].Player == player && m.turns[i].Genre == genre {
			cp := *m.turns[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockStorage) RecentTurns(ctx context.Context, player, genre string, limit int) ([]*game.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*game.ConversationTurn
	for i := len(m.turns) - 1; i >= 0 && len(out) < limit; i-- {
		t := m.turns[i]
		if t.Player == player && t.Genre == genre && t.Description != "" {
			cp := *t
			out = append(out, &cp)
		}
	}
	reverse(out)
	return out, nil
}

func (m *MockStorage) TurnsAtLocation(ctx context.Context, player, genre, location string, limit int) ([]*game.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*game.ConversationTurn
	for i := len(m.turns) - 1; i >= 0 && len(out) < limit; i-- {
		t := m.turns[i]
		if t.Player == player && t.Genre == genre && t.Location == location {
			cp := *t
			out = append(out, &cp)
		}
	}
	reverse(out)
	return out, nil
}

func (m *MockStorage) CountTurns(ctx context.Context, player, genre string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := 0
	for _, t := range m.turns {
		if t.Player == player && t.Genre == genre {
			n++
		}
	}
	return n, nil
}

func (m *MockStorage) DeleteTurns(ctx context.Context, player, genre string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	kept := m.turns[:0]
	deleted := 0
	for _, t := range m.turns {
		if t.Player == player && t.Genre == genre {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	m.turns = kept
	return deleted, nil
}

func (m *MockStorage) GetLocation(ctx context.Context, player, genre, name string) (*game.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, loc := range m.locations {
		if loc.Player == player && loc.Genre == genre && loc.Name == name {
			cp := *loc
			cp.Exits = copyExits(loc.Exits)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockStorage) FirstLocation(ctx context.Context, player, genre string) (*game.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, loc := range m.locations {
		if loc.Player == player && loc.Genre == genre {
			cp := *loc
			cp.Exits = copyExits(loc.Exits)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockStorage) CountLocations(ctx context.Context, player, genre string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := 0
	for _, loc := range m.locations {
		if loc.Player == player && loc.Genre == genre {
			n++
		}
	}
	return n, nil
}

func (m *MockStorage) CreateLocations(ctx context.Context, locations []*game.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, loc := range locations {
		if m.findLocation(loc.Player, loc.Genre, loc.Name) != nil {
			continue
		}
		m.nextLocID++
		cp := *loc
		cp.ID = m.nextLocID
		cp.Exits = copyExits(loc.Exits)
		m.locations = append(m.locations, &cp)
	}
	return nil
}

func (m *MockStorage) UpsertLocation(ctx context.Context, loc *game.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if existing := m.findLocation(loc.Player, loc.Genre, loc.Name); existing != nil {
		if loc.Description != "" {
			existing.Description = loc.Description
		}
		existing.VisitCount++
		existing.LastVisited = time.Now()
		return nil
	}
	m.nextLocID++
	cp := *loc
	cp.ID = m.nextLocID
	cp.Exits = copyExits(loc.Exits)
	cp.VisitCount = 1
	cp.LastVisited = time.Now()
	m.locations = append(m.locations, &cp)
	return nil
}

func (m *MockStorage) findLocation(player, genre, name string) *game.Location {
	for _, loc := range m.locations {
		if loc.Player == player && loc.Genre == genre && loc.Name == name {
			return loc
		}
	}
	return nil
}

func (m *MockStorage) DeleteLocations(ctx context.Context, player, genre string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	kept := m.locations[:0]
	deleted := 0
	for _, loc := range m.locations {
		if loc.Player == player && loc.Genre == genre {
			deleted++
			continue
		}
		kept = append(kept, loc)
	}
	m.locations = kept
	return deleted, nil
}

func (m *MockStorage) CreateQuests(ctx context.Context, quests []*game.Quest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, q := range quests {
		m.nextQuestID++
		cp := *q
		cp.ID = m.nextQuestID
		cp.XPReward = game.ClampXP(q.XPReward)
		if cp.Status == "" {
			cp.Status = game.QuestAvailable
		}
		m.quests = append(m.quests, &cp)
	}
	return nil
}

func (m *MockStorage) ListQuests(ctx context.Context, player, genre string) ([]*game.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*game.Quest
	for _, q := range m.quests {
		if q.Player == player && q.Genre == genre {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStorage) ActiveQuest(ctx context.Context, player, genre string) (*game.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, q := range m.quests {
		if q.Player == player && q.Genre == genre && q.Status == game.QuestActive {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockStorage) QuestsStartingAt(ctx context.Context, player, genre, location string) ([]*game.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*game.Quest
	for _, q := range m.quests {
		if q.Player == player && q.Genre == genre && q.StartingLocation == location && q.Status == game.QuestAvailable {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStorage) UpdateQuestStatus(ctx context.Context, id int64, status game.QuestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, q := range m.quests {
		if q.ID == id {
			q.Status = status
			return nil
		}
	}
	return fmt.Errorf("quest %d not found", id)
}

func (m *MockStorage) DeleteQuests(ctx context.Context, player, genre string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	kept := m.quests[:0]
	deleted := 0
	for _, q := range m.quests {
		if q.Player == player && q.Genre == genre {
			deleted++
			continue
		}
		kept = append(kept, q)
	}
	m.quests = kept
	return deleted, nil
}

func (m *MockStorage) GetPicmap(ctx context.Context, player, genre, location string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.picmaps[picKey(player, genre, location)], nil
}

func (m *MockStorage) SavePicmap(ctx context.Context, player, genre, location, file string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	key := picKey(player, genre, location)
	if _, ok := m.picmaps[key]; !ok {
		m.picmaps[key] = file
	}
	return nil
}

func (m *MockStorage) DeletePicmaps(ctx context.Context, player string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	deleted := 0
	for key := range m.picmaps {
		if len(key) > len(player) && key[:len(player)] == player && key[len(player)] == '|' {
			delete(m.picmaps, key)
			deleted++
		}
	}
	return deleted, nil
}

func copyExits(exits map[string]string) map[string]string {
	if exits == nil {
		return nil
	}
	cp := make(map[string]string, len(exits))
	for k, v := range exits {
		cp[k] = v
	}
	return cp
}

func picKey(player, genre, location string) string {
	return player + "|" + genre + "|" + location
}

func reverse(turns []*game.ConversationTurn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
