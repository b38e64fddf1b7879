package engine

import (
	"strings"
	"testing"
)

func TestParseReply_PureJSON(t *testing.T) {
	raw := `{"Description": "You enter the tavern. The air smells of ale.", "Location": "Tavern", "Health": "95"}`

	result := ParseReply(raw)

	if result.Reply == nil {
		t.Fatal("expected structured reply, got nil")
	}
	if got := result.Reply.Location.String(); got != "Tavern" {
		t.Errorf("expected location Tavern, got %q", got)
	}
	if got := result.Reply.Health.String(); got != "95" {
		t.Errorf("expected health 95, got %q", got)
	}
	if result.Narrative != "You enter the tavern. The air smells of ale." {
		t.Errorf("unexpected narrative: %q", result.Narrative)
	}
}

func TestParseReply_EmbeddedJSON(t *testing.T) {
	raw := `You push open the heavy door and step inside.

{"Location": "Great Hall", "Description": "A vaulted hall.", "Exits": {"south": "Courtyard"}}`

	result := ParseReply(raw)

	if result.Reply == nil {
		t.Fatal("expected structured reply, got nil")
	}
	if got := result.Reply.Location.String(); got != "Great Hall" {
		t.Errorf("expected location Great Hall, got %q", got)
	}
	if !strings.Contains(result.Narrative, "heavy door") {
		t.Errorf("narrative should keep the prose text, got %q", result.Narrative)
	}
	if strings.Contains(result.Narrative, "{") {
		t.Errorf("narrative should not contain JSON, got %q", result.Narrative)
	}
}

func TestParseReply_NestedBraces(t *testing.T) {
	// A greedy regex would cut this object short at the inner brace.
	raw := `The merchant nods. {"Location": "Market", "Stats": {"STR": "12", "DEX": "14"}, "Description": "Stalls everywhere."}`

	result := ParseReply(raw)

	if result.Reply == nil {
		t.Fatal("expected structured reply, got nil")
	}
	stats := result.Reply.Stats.ToMap()
	if stats["STR"] != "12" || stats["DEX"] != "14" {
		t.Errorf("nested stats not parsed: %v", stats)
	}
}

func TestParseReply_BracesInsideStrings(t *testing.T) {
	raw := `{"Description": "The sign reads {closed} in faded paint.", "Location": "Shop"}`

	result := ParseReply(raw)

	if result.Reply == nil {
		t.Fatal("expected structured reply, got nil")
	}
	if got := result.Reply.Location.String(); got != "Shop" {
		t.Errorf("expected location Shop, got %q", got)
	}
}

func TestParseReply_Totality(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"plain text", "You walk along the dusty road toward the hills."},
		{"truncated JSON", `{"Description": "You wal`},
		{"only braces", "{}{}{}"},
		{"markdown fence no json", "```\nnothing here\n```"},
		{"unbalanced", "deep {{{ nesting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseReply(tt.raw)
			if result.Narrative == "" {
				t.Error("narrative must never be empty")
			}
		})
	}
}

func TestParseReply_ShortNarrativeFallback(t *testing.T) {
	result := ParseReply(`{"Description": "Ok."}`)
	if result.Narrative != fallbackNarrative {
		t.Errorf("expected fallback narrative, got %q", result.Narrative)
	}
}

func TestParseReply_MarkdownFencedJSON(t *testing.T) {
	raw := "```json\n{\"Description\": \"You rest by the fire for a while.\", \"Location\": \"Camp\"}\n```"

	result := ParseReply(raw)

	if result.Reply == nil {
		t.Fatal("expected structured reply from fenced JSON")
	}
	if got := result.Reply.Location.String(); got != "Camp" {
		t.Errorf("expected location Camp, got %q", got)
	}
}

func TestParseReply_RegisteredLenient(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"string true", `{"Registered": "true", "Description": "Welcome to the adventure!"}`, true},
		{"bool true", `{"Registered": true, "Description": "Welcome to the adventure!"}`, true},
		{"empty string", `{"Registered": "", "Description": "Welcome to the adventure!"}`, false},
		{"absent", `{"Description": "Welcome to the adventure!"}`, false},
		{"junk number", `{"Registered": 7, "Description": "Welcome to the adventure!"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseReply(tt.raw)
			if result.Reply == nil {
				t.Fatal("expected structured reply")
			}
			if bool(result.Reply.Registered) != tt.want {
				t.Errorf("expected registered=%v", tt.want)
			}
		})
	}
}

func TestSanitizeNarrative(t *testing.T) {
	got := sanitizeNarrative("You  arrive.   {\"leftover\": 1}  The gates stand open before you.")
	if strings.Contains(got, "{") {
		t.Errorf("residual JSON not stripped: %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}
