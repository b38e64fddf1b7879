package chat

import "fmt"

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleSystem    = "system"
)

// ChatMessage is a single message in a chat completion request.
// The shape follows the OpenAI chat completions API.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// TurnRequest is the body of a game-turn request.
type TurnRequest struct {
	Command string `json:"command"`
	// Location is a bootstrap hint used by legacy clients that track
	// their own position. The engine prefers the persisted location.
	Location string `json:"location,omitempty"`
}

func (tr *TurnRequest) Validate() error {
	if tr.Command == "" {
		return fmt.Errorf("command cannot be empty")
	}
	return nil
}

// TurnResponse is returned for a processed game turn.
type TurnResponse struct {
	Narrative   string      `json:"narrative,omitempty"`
	GameState   interface{} `json:"gameState,omitempty"`
	RawResponse string      `json:"rawResponse,omitempty"`
	Error       string      `json:"error,omitempty"`
}
