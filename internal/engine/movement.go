package engine

import (
	"regexp"
	"strings"
)

var (
	movementVerbRe  = regexp.MustCompile(`(?i)^(?:go|move|walk|travel|head)\s+(north|south|east|west|up|down|n|s|e|w)\b`)
	bareDirectionRe = regexp.MustCompile(`(?i)^(north|south|east|west|up|down|n|s|e|w)[.!]?$`)
)

var directionAliases = map[string]string{
	"n": "north",
	"s": "south",
	"e": "east",
	"w": "west",
}

// ParseDirection reports whether the command is a movement command and,
// if so, the normalized direction ("north", "up", ...).
func ParseDirection(command string) (string, bool) {
	cmd := strings.TrimSpace(command)
	var dir string
	if m := movementVerbRe.FindStringSubmatch(cmd); m != nil {
		dir = strings.ToLower(m[1])
	} else if m := bareDirectionRe.FindStringSubmatch(cmd); m != nil {
		dir = strings.ToLower(m[1])
	} else {
		return "", false
	}
	if full, ok := directionAliases[dir]; ok {
		dir = full
	}
	return dir, true
}

// ResolveExit looks up a direction in an exits map, tolerating casing
// differences in the stored keys.
func ResolveExit(exits map[string]string, direction string) (string, bool) {
	if dest, ok := exits[direction]; ok && dest != "" {
		return dest, true
	}
	for k, dest := range exits {
		if strings.EqualFold(k, direction) && dest != "" {
			return dest, true
		}
	}
	return "", false
}
