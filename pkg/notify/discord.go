package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var ErrInvalidWebhookURL = errors.New("invalid discord webhook url")

type discordWebhookClient interface {
	WebhookExecute(
		webhookID, token string,
		wait bool,
		data *discordgo.WebhookParams,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// DiscordSender posts messages to a Discord incoming webhook.
type DiscordSender struct {
	client    discordWebhookClient
	webhookID string
	token     string
}

// NewDiscordSender creates a sender from a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func NewDiscordSender(webhookURL string) (*DiscordSender, error) {
	webhookID, token, err := parseDiscordWebhook(webhookURL)
	if err != nil {
		return nil, err
	}

	// webhook execution is authorized by the token in the path, no bot token needed
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &DiscordSender{client: session, webhookID: webhookID, token: token}, nil
}

// Send posts the message, with the title as an embed heading when set.
func (s *DiscordSender) Send(ctx context.Context, title, message string) error {
	params := &discordgo.WebhookParams{Content: message}

	if title != "" {
		params.Content = ""
		params.Embeds = []*discordgo.MessageEmbed{{
			Title:       title,
			Description: message,
		}}
	}

	_, err := s.client.WebhookExecute(s.webhookID, s.token, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}

	return nil
}

func parseDiscordWebhook(webhookURL string) (string, string, error) {
	parsed, err := url.Parse(webhookURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidWebhookURL, webhookURL)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}

	return "", "", fmt.Errorf("%w: %q", ErrInvalidWebhookURL, webhookURL)
}
