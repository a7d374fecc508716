package debug

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DebugClient provides access to the bot's debug API
type DebugClient struct {
	baseURL string
	client  *http.Client
}

// NewDebugClient creates a new debug API client
func NewDebugClient(baseURL string) *DebugClient {
	return &DebugClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// DebugResponse represents the API response
type DebugResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// GuildInfo represents basic guild information
type GuildInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// CheckConnection verifies the debug API is accessible
func (c *DebugClient) CheckConnection() error {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("debug API not accessible: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("debug API returned status %d", resp.StatusCode)
	}

	return nil
}

// ReplayMessage sends a replay command to the bot
func (c *DebugClient) ReplayMessage(channelID, messageID string) error {
	cmd := map[string]interface{}{
		"action": "replay",
		"params": map[string]string{
			"channel_id": channelID,
			"message_id": messageID,
		},
	}

	resp, err := c.sendCommand(cmd)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("replay failed: %s", resp.Error)
	}

	return nil
}

// GetGuilds fetches the list of guilds from the bot
func (c *DebugClient) GetGuilds() ([]GuildInfo, error) {
	resp, err := c.client.Get(c.baseURL + "/debug/guilds")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guilds: %w", err)
	}
	defer resp.Body.Close()

	var debugResp DebugResponse
	if err := json.NewDecoder(resp.Body).Decode(&debugResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !debugResp.Success {
		return nil, fmt.Errorf("failed to get guilds: %s", debugResp.Error)
	}

	var guilds []GuildInfo
	if err := json.Unmarshal(debugResp.Data, &guilds); err != nil {
		return nil, fmt.Errorf("failed to decode guilds: %w", err)
	}
	return guilds, nil
}

// sendCommand sends a command to the debug API
func (c *DebugClient) sendCommand(cmd interface{}) (*DebugResponse, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	resp, err := c.client.Post(c.baseURL+"/debug/command", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var debugResp DebugResponse
	if err := json.NewDecoder(resp.Body).Decode(&debugResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &debugResp, nil
}
