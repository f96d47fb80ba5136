package notify

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender delivers alerts to a Telegram chat through the Bot API.
type TelegramSender struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewTelegramSender creates a sender posting to the given chat. The default
// HTTP client times out after 10 seconds.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:   token,
		chatID:  chatID,
		apiBase: telegramAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send renders the alert as an HTML message and posts it through the
// sendMessage method. The event tag and title go on a bold first line, the
// body and each field on their own lines underneath.
func (t *TelegramSender) Send(ctx context.Context, alert Alert) error {
	form := url.Values{
		"chat_id":                  {t.chatID},
		"text":                     {renderTelegramText(alert)},
		"parse_mode":               {"HTML"},
		"disable_web_page_preview": {"true"},
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func renderTelegramText(alert Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>[%s] %s</b>", alert.tag(), html.EscapeString(alert.Title))
	if alert.Body != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(alert.Body))
	}
	for _, f := range alert.Fields {
		fmt.Fprintf(&b, "\n%s: <code>%s</code>",
			html.EscapeString(f.Label), html.EscapeString(f.Value))
	}
	return b.String()
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
