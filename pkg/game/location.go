package game

import "time"

// Location is one node of a player's world graph, unique per
// (player, genre, name). Exits map a direction to a destination location
// name within the same player and genre. Dangling exits are tolerated at
// write time; traversal simply fails to resolve them.
type Location struct {
	ID          int64             `json:"id"`
	Player      string            `json:"player"`
	Genre       string            `json:"genre"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Exits       map[string]string `json:"exits"`
	VisitCount  int               `json:"visit_count"`
	LastVisited time.Time         `json:"last_visited"`
}
