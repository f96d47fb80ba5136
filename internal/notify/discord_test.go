package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwallach/sentinel/internal/domain"
)

func TestDiscordSendBuildsEmbed(t *testing.T) {
	var payload struct {
		Embeds []discordEmbed `json:"embeds"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	err := sender.Send(context.Background(), Alert{
		Event: domain.EventKillSwitchTripped,
		Title: "Kill switch: u1",
		Body:  "daily loss limit breached",
		Fields: []Field{
			{Label: "Scope", Value: "account-wide"},
			{Label: "Cooldown", Value: "30m"},
		},
	})

	require.NoError(t, err)
	require.Len(t, payload.Embeds, 1)
	embed := payload.Embeds[0]
	assert.Equal(t, "[KILL SWITCH] Kill switch: u1", embed.Title)
	assert.Equal(t, "daily loss limit breached", embed.Description)
	assert.Equal(t, discordColorRed, embed.Color)
	assert.NotEmpty(t, embed.Timestamp)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Scope", embed.Fields[0].Name)
	assert.Equal(t, "account-wide", embed.Fields[0].Value)
}

func TestDiscordColorPerEvent(t *testing.T) {
	assert.Equal(t, discordColorRed, discordColor(domain.EventCloseTriggered))
	assert.Equal(t, discordColorOrange, discordColor(domain.EventRiskAlert))
	assert.Equal(t, discordColorGreen, discordColor(domain.EventKillSwitchReset))
	assert.Equal(t, discordColorGrey, discordColor(domain.EventPositionUpdated))
}

func TestDiscordSendSurfacesWebhookErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	err := sender.Send(context.Background(), Alert{Title: "t"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
