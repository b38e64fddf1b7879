package game

import (
	"encoding/json"
	"time"
)

// ConversationTurn is one append-only row of the conversation log: the
// player's raw input plus the reconciled state fields at that turn. Rows
// are never mutated; they are the history source for later prompts and
// the audit trail.
type ConversationTurn struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Player    string    `json:"player"`
	Genre     string    `json:"genre"`

	UserInput string `json:"user_input"`
	Action    string `json:"action"` // narrative text shown to the player

	Registered  string `json:"registered"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	PlayerClass string `json:"player_class"`
	Race        string `json:"race"`
	Turn        string `json:"turn"`
	TimePeriod  string `json:"time_period"`
	DayNumber   string `json:"day_number"`
	Weather     string `json:"weather"`
	Health      string `json:"health"`
	Gold        string `json:"gold"`
	XP          string `json:"xp"`
	AC          string `json:"ac"`
	Level       string `json:"level"`
	Description string `json:"description"`
	Quest       string `json:"quest"`
	Location    string `json:"location"`
	Stats       string `json:"stats"`     // JSON object text
	Inventory   string `json:"inventory"` // JSON array text

	RawResponse string `json:"raw_response"`
}

// TurnFromState flattens a reconciled GameState into a storable row.
func TurnFromState(gs *GameState, userInput, action string) *ConversationTurn {
	return &ConversationTurn{
		Player:      gs.Player,
		Genre:       gs.GenreLabel,
		UserInput:   userInput,
		Action:      action,
		Registered:  gs.Registered.StorageValue(),
		Name:        gs.Name,
		Gender:      gs.Gender,
		PlayerClass: gs.Class,
		Race:        gs.Race,
		Turn:        gs.Turn,
		TimePeriod:  gs.TimePeriod,
		DayNumber:   gs.Day,
		Weather:     gs.Weather,
		Health:      gs.Health,
		Gold:        gs.Gold,
		XP:          gs.XP,
		AC:          gs.ArmorClass,
		Level:       gs.Level,
		Description: gs.Description,
		Quest:       gs.Quest,
		Location:    gs.Location,
		Stats:       marshalMap(gs.Stats),
		Inventory:   marshalList(gs.Inventory),
		RawResponse: gs.RawResponse,
	}
}

// StateFromTurn rebuilds a GameState from a stored row. Exits are left
// empty; they are always re-derived from the location store.
func StateFromTurn(t *ConversationTurn, player string, genre Genre) *GameState {
	return &GameState{
		Player:      player,
		Genre:       genre,
		GenreLabel:  t.Genre,
		Registered:  StickyFromStorage(t.Registered),
		Name:        t.Name,
		Gender:      t.Gender,
		Class:       t.PlayerClass,
		Race:        t.Race,
		Turn:        t.Turn,
		TimePeriod:  t.TimePeriod,
		Day:         t.DayNumber,
		Weather:     t.Weather,
		Health:      t.Health,
		Gold:        t.Gold,
		XP:          t.XP,
		ArmorClass:  t.AC,
		Level:       t.Level,
		Description: t.Description,
		Quest:       t.Quest,
		Location:    t.Location,
		Stats:       unmarshalMap(t.Stats),
		Inventory:   unmarshalList(t.Inventory),
		RawResponse: t.RawResponse,
	}
}

func marshalMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalMap(s string) map[string]string {
	if s == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

func marshalList(l []string) string {
	if len(l) == 0 {
		return ""
	}
	data, err := json.Marshal(l)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalList(s string) []string {
	if s == "" {
		return nil
	}
	var l []string
	if err := json.Unmarshal([]byte(s), &l); err != nil {
		return nil
	}
	return l
}
