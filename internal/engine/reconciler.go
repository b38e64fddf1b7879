package engine

import (
	"strings"

	"github.com/questforge/questforge/pkg/game"
)

// IsNewGameCommand reports whether the command asks for a full restart.
// The purge it triggers happens before reconciliation, not after.
func IsNewGameCommand(command string) bool {
	return strings.Contains(strings.ToLower(command), "start a new game")
}

// ReconcileResult carries the next authoritative state plus the side
// effect signals the orchestrator acts on.
type ReconcileResult struct {
	Next *game.GameState

	// RegistrationCompleted is true the first time a reply flips the
	// registered flag for a custom game. The caller kicks off world
	// generation asynchronously; the turn response does not wait on it.
	RegistrationCompleted bool

	// LocationChanged is true when the persisted location differs from
	// the previous state's.
	LocationChanged bool
}

// Reconcile merges a parsed reply into the previous state, producing the
// next authoritative state. Absent or empty reply fields carry the
// previous value forward; the registered flag is monotonic; exits are
// never taken from the reply (the caller re-derives them from the
// location store). A nil reply still yields a valid next state: the turn
// counter advances and the narrative becomes the description.
func Reconcile(prev *game.GameState, reply *game.Reply, narrative, rawResponse string) *ReconcileResult {
	next := *prev
	next.RawResponse = rawResponse
	next.Exits = nil

	if reply == nil {
		next.Turn = prev.NextTurn()
		next.Description = narrative
		return &ReconcileResult{Next: &next}
	}

	next.Turn = pick(reply.Turn, prev.NextTurn())
	next.TimePeriod = pick(reply.TimePeriod, prev.TimePeriod)
	next.Day = pick(reply.Day, prev.Day)
	next.Weather = pick(reply.Weather, prev.Weather)
	next.Health = pick(reply.Health, prev.Health)
	next.Gold = pick(reply.Gold, prev.Gold)
	next.XP = pick(reply.XP, prev.XP)
	next.ArmorClass = pick(reply.ArmorClass, prev.ArmorClass)
	next.Level = pick(reply.Level, prev.Level)
	next.Quest = pick(reply.Quest, prev.Quest)
	next.Location = pick(reply.Location, prev.Location)
	next.Gender = pick(reply.Gender, prev.Gender)

	next.Description = pick(reply.Description, "")
	if strings.TrimSpace(next.Description) == "" {
		next.Description = narrative
	}

	// Identity fields prefer an established previous value over a new
	// empty one; the model routinely omits facts it set turns ago.
	next.Name = pick(reply.Name, prev.Name)
	next.Class = pick(reply.Class, prev.Class)
	next.Race = pick(reply.Race, prev.Race)

	if m := reply.Stats.ToMap(); len(m) > 0 {
		next.Stats = m
	}
	if len(reply.Inventory) > 0 {
		next.Inventory = []string(reply.Inventory)
	}

	next.Registered = reply.Registered.Merge(prev.Registered)

	result := &ReconcileResult{
		Next:            &next,
		LocationChanged: next.Location != prev.Location,
	}
	if next.Registered && !prev.Registered {
		result.RegistrationCompleted = true
	}
	return result
}

func pick(v game.FlexString, fallback string) string {
	if s := strings.TrimSpace(v.String()); s != "" {
		return s
	}
	return fallback
}
