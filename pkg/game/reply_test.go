package game

import (
	"encoding/json"
	"testing"
)

func TestFlexString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"Tavern"`, "Tavern"},
		{"integer", `80`, "80"},
		{"float", `12.5`, "12.5"},
		{"integer-valued float", `80.0`, "80"},
		{"bool", `true`, "true"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fs FlexString
			if err := json.Unmarshal([]byte(tt.raw), &fs); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fs.String() != tt.want {
				t.Errorf("got %q, want %q", fs.String(), tt.want)
			}
		})
	}
}

func TestFlexStrings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"array", `["sword", "rope"]`, []string{"sword", "rope"}},
		{"mixed types", `["sword", 7]`, []string{"sword", "7"}},
		{"bare string", `"sword"`, []string{"sword"}},
		{"empty string", `""`, nil},
		{"null", `null`, nil},
		{"drops empties", `["sword", ""]`, []string{"sword"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fl FlexStrings
			if err := json.Unmarshal([]byte(tt.raw), &fl); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(fl) != len(tt.want) {
				t.Fatalf("got %v, want %v", fl, tt.want)
			}
			for i := range fl {
				if fl[i] != tt.want[i] {
					t.Errorf("got %v, want %v", fl, tt.want)
				}
			}
		})
	}
}

func TestReply_MistypedFields(t *testing.T) {
	raw := `{
		"Health": 80,
		"Gold": "12",
		"Turn": 4,
		"Stats": {"STR": 12, "DEX": "14"},
		"Inventory": "torch",
		"Exits": {"north": "Square"}
	}`

	var r Reply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Health.String() != "80" || r.Gold.String() != "12" || r.Turn.String() != "4" {
		t.Errorf("numeric fields not coerced: %+v", r)
	}
	stats := r.Stats.ToMap()
	if stats["STR"] != "12" || stats["DEX"] != "14" {
		t.Errorf("stats not coerced: %v", stats)
	}
	if len(r.Inventory) != 1 || r.Inventory[0] != "torch" {
		t.Errorf("bare inventory string not wrapped: %v", r.Inventory)
	}
}
