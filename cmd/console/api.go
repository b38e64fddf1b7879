package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/questforge/questforge/pkg/chat"
	"github.com/questforge/questforge/pkg/game"
)

type apiClient struct {
	baseURL string
	player  string
	client  *http.Client
}

func newAPIClient(cfg *ConsoleConfig) *apiClient {
	return &apiClient{
		baseURL: cfg.APIBaseURL,
		player:  cfg.Player,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *apiClient) Healthy() bool {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// turnReply is the decoded body of a turn response. GameState is decoded
// separately because the wire shape matches game.GameState's JSON tags.
type turnReply struct {
	Narrative string          `json:"narrative"`
	GameState *game.GameState `json:"gameState"`
	Error     string          `json:"error"`
}

// SendTurn posts one player command for the given genre.
func (c *apiClient) SendTurn(genre game.Genre, command string) (*turnReply, error) {
	reqBody, err := json.Marshal(chat.TurnRequest{Command: command})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/v1/game/%s/turn", c.baseURL, genre.String()),
		bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Player", c.player)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var reply turnReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		if reply.Error != "" {
			return nil, fmt.Errorf("turn failed: %s", reply.Error)
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return &reply, nil
}

// stateReply is the decoded body of a state response.
type stateReply struct {
	GameState *game.GameState `json:"gameState"`
	Turns     int             `json:"turns"`
	Quest     *game.Quest     `json:"quest"`
	Error     string          `json:"error"`
}

// LoadState fetches the persisted state for the given genre so a running
// game can be resumed. GameState is nil when no game exists yet.
func (c *apiClient) LoadState(genre game.Genre) (*stateReply, error) {
	req, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/v1/game/%s/state", c.baseURL, genre.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Player", c.player)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var reply stateReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		if reply.Error != "" {
			return nil, fmt.Errorf("loading state failed: %s", reply.Error)
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return &reply, nil
}
