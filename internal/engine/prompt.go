package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/questforge/questforge/pkg/chat"
	"github.com/questforge/questforge/pkg/game"
)

// historyTurns is how many recent conversation rows are rendered into
// the prompt as alternating user/assistant messages.
const historyTurns = 6

// BuildTurnMessages assembles the full message list for one turn: the
// genre instructions plus the current state snapshot as the system
// message, recent history oldest-first, then the player's command.
func BuildTurnMessages(instructions string, state *game.GameState, history []*game.ConversationTurn, command string) []chat.ChatMessage {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nCurrent game state:\n")
	sb.WriteString(state.Snapshot())

	if len(state.Exits) > 0 {
		sb.WriteString("\n\nValid exits from the current location:\n")
		for _, dir := range sortedKeys(state.Exits) {
			fmt.Fprintf(&sb, "- %s: %s\n", dir, state.Exits[dir])
		}
		sb.WriteString("If the player tries to move in a direction with no exit, refuse the move in character and mention the available exits.")
	}

	messages := make([]chat.ChatMessage, 0, len(history)*2+2)
	messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleSystem, Content: sb.String()})

	for _, t := range history {
		if t.UserInput != "" {
			messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: t.UserInput})
		}
		if t.Action != "" {
			messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleAssistant, Content: t.Action})
		}
	}

	messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: command})
	return messages
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
