package engine

import "testing"

func TestParseDirection(t *testing.T) {
	tests := []struct {
		command string
		want    string
		isMove  bool
	}{
		{"go north", "north", true},
		{"Go North", "north", true},
		{"move south", "south", true},
		{"walk east", "east", true},
		{"travel west", "west", true},
		{"head up", "up", true},
		{"go down", "down", true},
		{"go n", "north", true},
		{"n", "north", true},
		{"s", "south", true},
		{"e", "east", true},
		{"w", "west", true},
		{"north", "north", true},
		{"north!", "north", true},
		{"  go north  ", "north", true},
		{"go north through the gate", "north", true},
		{"go northward", "", false},
		{"going nowhere", "", false},
		{"northern lights", "", false},
		{"look around", "", false},
		{"waste time", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		dir, ok := ParseDirection(tt.command)
		if ok != tt.isMove {
			t.Errorf("ParseDirection(%q) matched=%v, want %v", tt.command, ok, tt.isMove)
			continue
		}
		if ok && dir != tt.want {
			t.Errorf("ParseDirection(%q) = %q, want %q", tt.command, dir, tt.want)
		}
	}
}

func TestResolveExit(t *testing.T) {
	exits := map[string]string{"North": "Bridge", "south": "Gatehouse", "east": ""}

	tests := []struct {
		direction string
		want      string
		found     bool
	}{
		{"north", "Bridge", true},
		{"south", "Gatehouse", true},
		{"east", "", false}, // dangling exit
		{"west", "", false},
	}

	for _, tt := range tests {
		dest, found := ResolveExit(exits, tt.direction)
		if found != tt.found || dest != tt.want {
			t.Errorf("ResolveExit(%q) = %q,%v want %q,%v", tt.direction, dest, found, tt.want, tt.found)
		}
	}
}
