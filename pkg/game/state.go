package game

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// StickyFlag is a boolean that serializes as "true"/"" at the storage and
// prompt boundary, where the schema is string-typed. Merging is monotonic:
// once true it never reverts (see Merge).
type StickyFlag bool

func (f StickyFlag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"true"`), nil
	}
	return []byte(`""`), nil
}

func (f *StickyFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = false
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = StickyFlag(strings.EqualFold(strings.TrimSpace(s), "true"))
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		// Tolerate numbers and other junk from the LLM.
		*f = false
		return nil
	}
	*f = StickyFlag(b)
	return nil
}

// Merge applies the monotonic-OR rule: a previously true flag stays true.
func (f StickyFlag) Merge(prev StickyFlag) StickyFlag {
	return f || prev
}

// StorageValue converts to the string representation stored in turn rows.
func (f StickyFlag) StorageValue() string {
	if f {
		return "true"
	}
	return ""
}

// StickyFromStorage parses the stored "true"/"" representation.
func StickyFromStorage(s string) StickyFlag {
	return StickyFlag(strings.EqualFold(strings.TrimSpace(s), "true"))
}

// GameState is the reconciled, authoritative snapshot for one player and
// genre at one point in time. It is derived each turn from the latest
// conversation row plus a live location lookup; it is never stored as its
// own row. The JSON field names match the schema the LLM is instructed to
// produce, so a marshaled GameState doubles as the prompt state snapshot.
type GameState struct {
	Player string `json:"-"`
	Genre  Genre  `json:"-"`

	Registered StickyFlag `json:"Registered"`
	Name       string     `json:"Name"`
	Gender     string     `json:"Gender"`
	Class      string     `json:"Class"`
	Race       string     `json:"Race"`

	// Progression counters are string-typed end to end; the storage schema
	// keeps them as text and the LLM emits them as strings.
	Turn       string `json:"Turn"`
	TimePeriod string `json:"Time"`
	Day        string `json:"Day"`
	Weather    string `json:"Weather"`

	Health     string `json:"Health"`
	Gold       string `json:"Gold"`
	XP         string `json:"XP"`
	ArmorClass string `json:"AC"`
	Level      string `json:"Level"`

	Description string            `json:"Description"`
	Quest       string            `json:"Quest"`
	Location    string            `json:"Location"`
	Exits       map[string]string `json:"Exits"`
	Stats       map[string]string `json:"Stats"`
	Inventory   []string          `json:"Inventory"`
	GenreLabel  string            `json:"Genre"`

	// RawResponse is the verbatim LLM text, retained for diagnostics only.
	RawResponse string `json:"-"`
}

// NextTurn returns the current turn counter incremented by one, defaulting
// to 1 when the counter is unset or unparsable.
func (gs *GameState) NextTurn() string {
	n, err := strconv.Atoi(strings.TrimSpace(gs.Turn))
	if err != nil {
		return "1"
	}
	return strconv.Itoa(n + 1)
}

// Snapshot marshals the state into the indented JSON block embedded in the
// system prompt.
func (gs *GameState) Snapshot() string {
	data, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
