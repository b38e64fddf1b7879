package game

import "testing"

func TestClampXP(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 100},
		{-5, 100},
		{10, 50},
		{50, 50},
		{300, 300},
		{500, 500},
		{9000, 500},
	}

	for _, tt := range tests {
		if got := ClampXP(tt.in); got != tt.want {
			t.Errorf("ClampXP(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseGenre(t *testing.T) {
	for _, g := range Genres() {
		parsed, err := ParseGenre(g.String())
		if err != nil || parsed != g {
			t.Errorf("ParseGenre(%q) = %v, %v", g.String(), parsed, err)
		}
	}
	if _, err := ParseGenre("western"); err == nil {
		t.Error("expected error for unknown genre")
	}
}
