package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwallach/sentinel/internal/domain"
)

func TestTelegramSendFormatsAlert(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "/bottoken123/sendMessage", r.URL.Path)
	}))
	defer srv.Close()

	sender := NewTelegramSender("token123", "chat42")
	sender.apiBase = srv.URL

	err := sender.Send(context.Background(), Alert{
		Event: domain.EventCloseTriggered,
		Title: "Position close: BTCUSDT",
		Body:  "stop loss hit",
		Fields: []Field{
			{Label: "Reason", Value: "stop_loss"},
			{Label: "Unrealized PnL", Value: "-120.50"},
		},
	})

	require.NoError(t, err)
	require.NotNil(t, form)
	assert.Equal(t, []string{"chat42"}, form["chat_id"])
	assert.Equal(t, []string{"HTML"}, form["parse_mode"])

	text := form["text"][0]
	assert.Contains(t, text, "<b>[CLOSE] Position close: BTCUSDT</b>")
	assert.Contains(t, text, "stop loss hit")
	assert.Contains(t, text, "Reason: <code>stop_loss</code>")
	assert.Contains(t, text, "Unrealized PnL: <code>-120.50</code>")
}

func TestTelegramSendEscapesHTML(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		text = r.PostForm.Get("text")
	}))
	defer srv.Close()

	sender := NewTelegramSender("tok", "chat")
	sender.apiBase = srv.URL

	err := sender.Send(context.Background(), Alert{Title: "a <b> & c"})

	require.NoError(t, err)
	assert.Contains(t, text, "a &lt;b&gt; &amp; c")
}

func TestTelegramSendSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := NewTelegramSender("tok", "chat")
	sender.apiBase = srv.URL

	err := sender.Send(context.Background(), Alert{Title: "t"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
