package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// Embed accent colors per event type, matching the channel's severity cues.
const (
	discordColorRed    = 0xE74C3C
	discordColorOrange = 0xE67E22
	discordColorGreen  = 0x2ECC71
	discordColorGrey   = 0x95A5A6
)

// DiscordSender delivers alerts to a Discord channel through a webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a sender for the given webhook URL. The default
// HTTP client times out after 10 seconds.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Send posts the alert as a single embed, colored by event severity, with
// the alert's fields rendered as inline embed fields.
func (d *DiscordSender) Send(ctx context.Context, alert Alert) error {
	embed := discordEmbed{
		Title:       fmt.Sprintf("[%s] %s", alert.tag(), alert.Title),
		Description: alert.Body,
		Color:       discordColor(alert.Event),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	for _, f := range alert.Fields {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   f.Label,
			Value:  f.Value,
			Inline: true,
		})
	}

	body, err := json.Marshal(map[string]any{"embeds": []discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func discordColor(event string) int {
	switch event {
	case domain.EventCloseTriggered, domain.EventKillSwitchTripped:
		return discordColorRed
	case domain.EventRiskAlert:
		return discordColorOrange
	case domain.EventKillSwitchReset:
		return discordColorGreen
	default:
		return discordColorGrey
	}
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
