package game

import "fmt"

// Genre identifies one of the parallel game worlds. Each genre has its
// own instruction documents and default starting location, but all four
// run through the same turn engine.
type Genre string

const (
	GenreFantasy Genre = "fantasy"
	GenreScifi   Genre = "scifi"
	GenreMystery Genre = "mystery"
	GenreCustom  Genre = "custom"
)

// GenreConfig is the per-genre configuration record consumed by the
// orchestrator. Label is the value stored in the genre column; the *Doc
// fields are instruction document keys.
type GenreConfig struct {
	Genre           Genre
	Label           string
	InstructionsDoc string
	WorldDoc        string
	QuestDoc        string
	// ClerkDoc is the registration-interview instruction document, used
	// only before a custom game's registration completes.
	ClerkDoc string
	// StartLocation is the default location for a brand-new character.
	StartLocation string
	// ImageStyle is appended to image generation prompts.
	ImageStyle string
}

var genreConfigs = map[Genre]GenreConfig{
	GenreFantasy: {
		Genre:           GenreFantasy,
		Label:           "fantasy D&D",
		InstructionsDoc: "instructions-fantasy",
		WorldDoc:        "world-fantasy",
		QuestDoc:        "quests-fantasy",
		StartLocation:   "Adventurer's Guild",
		ImageStyle:      "fantasy medieval style, dungeons and dragons, stone architecture, torchlight, no modern elements whatsoever",
	},
	GenreScifi: {
		Genre:           GenreScifi,
		Label:           "Science Fiction",
		InstructionsDoc: "instructions-scifi",
		WorldDoc:        "world-scifi",
		QuestDoc:        "quests-scifi",
		StartLocation:   "Unemployment Center",
		ImageStyle:      "science fiction, futuristic technology, spaceship interiors, alien environments, high-tech corridors",
	},
	GenreMystery: {
		Genre:           GenreMystery,
		Label:           "Mystery",
		InstructionsDoc: "instructions-mystery",
		WorldDoc:        "world-mystery",
		QuestDoc:        "quests-mystery",
		StartLocation:   "Newspaper Office",
		ImageStyle:      "noir detective style, 1940s-1950s atmosphere, dark moody lighting, film noir",
	},
	GenreCustom: {
		Genre:           GenreCustom,
		Label:           "Custom",
		InstructionsDoc: "instructions-custom",
		WorldDoc:        "world-custom",
		QuestDoc:        "quests-custom",
		ClerkDoc:        "instructions-clerk",
		StartLocation:   "Starting Location",
		ImageStyle:      "cinematic dramatic lighting, detailed artwork, immersive fantasy or sci-fi environment",
	},
}

// ParseGenre validates a genre string from the request path.
func ParseGenre(s string) (Genre, error) {
	g := Genre(s)
	if _, ok := genreConfigs[g]; !ok {
		return "", fmt.Errorf("unknown genre: %q", s)
	}
	return g, nil
}

// Config returns the configuration record for the genre.
func (g Genre) Config() GenreConfig {
	return genreConfigs[g]
}

// Label returns the genre value stored in persistence rows.
func (g Genre) Label() string {
	return genreConfigs[g].Label
}

func (g Genre) String() string {
	return string(g)
}

// Genres lists all playable genres.
func Genres() []Genre {
	return []Genre{GenreFantasy, GenreScifi, GenreMystery, GenreCustom}
}
