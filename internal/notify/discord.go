// Package notify delivers user alerts over Discord direct messages.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eve-companion/internal/config"
)

const defaultBaseURL = "https://discord.com/api/v10"

// DiscordNotifier sends direct messages through a bot account. Each send
// opens (or reuses, Discord-side) a DM channel with the user and posts the
// message there.
type DiscordNotifier struct {
	baseURL  string
	botToken string
	client   *http.Client
}

// NewDiscordNotifier creates a notifier from configuration.
func NewDiscordNotifier(cfg *config.DiscordConfig) (*DiscordNotifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &DiscordNotifier{
		baseURL:  baseURL,
		botToken: cfg.BotToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type dmChannel struct {
	ID string `json:"id"`
}

// NotifyUser DMs the given Discord user.
func (d *DiscordNotifier) NotifyUser(ctx context.Context, discordUserID, message string) error {
	channel, err := d.openDM(ctx, discordUserID)
	if err != nil {
		return err
	}
	return d.postMessage(ctx, channel, message)
}

func (d *DiscordNotifier) openDM(ctx context.Context, discordUserID string) (string, error) {
	var channel dmChannel
	err := d.post(ctx, "/users/@me/channels",
		map[string]string{"recipient_id": discordUserID}, &channel)
	if err != nil {
		return "", fmt.Errorf("open dm channel: %w", err)
	}
	return channel.ID, nil
}

func (d *DiscordNotifier) postMessage(ctx context.Context, channelID, message string) error {
	err := d.post(ctx, "/channels/"+channelID+"/messages",
		map[string]string{"content": message}, nil)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func (d *DiscordNotifier) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+d.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
