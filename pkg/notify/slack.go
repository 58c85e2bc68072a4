package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// SlackSender posts messages to a Slack incoming webhook.
type SlackSender struct {
	webhookURL string
	client     *http.Client
}

// NewSlackSender creates a sender for the given webhook URL.
func NewSlackSender(webhookURL string, client *http.Client) *SlackSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &SlackSender{webhookURL: webhookURL, client: client}
}

// Send posts the message, with the title in bold on the first line when set.
func (s *SlackSender) Send(ctx context.Context, title, message string) error {
	text := message
	if title != "" {
		text = "*" + title + "*\n" + message
	}

	err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, &slack.WebhookMessage{Text: text})
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}

	return nil
}
