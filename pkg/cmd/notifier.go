package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/notify"
)

type NotifierConfig struct {
	DiscordWebhookURL string
	SlackWebhookURL   string
	SES               notify.SESConfig
}

// NewNotifier registers a sender for every channel with configuration.
// Channels left unconfigured fail at send time.
func NewNotifier(ctx context.Context, logger *slog.Logger, cfg NotifierConfig) (*notify.Dispatcher, error) {
	dispatcher := notify.NewDispatcher(logger)

	if cfg.DiscordWebhookURL != "" {
		sender, err := notify.NewDiscordSender(cfg.DiscordWebhookURL)
		if err != nil {
			return nil, err
		}

		dispatcher.Register(models.NotificationChannelDiscord, sender)
	}

	if cfg.SlackWebhookURL != "" {
		dispatcher.Register(models.NotificationChannelSlack, notify.NewSlackSender(cfg.SlackWebhookURL, &http.Client{Timeout: 10 * time.Second}))
	}

	if cfg.SES.From != "" {
		sender, err := notify.NewEmailSender(ctx, cfg.SES)
		if err != nil {
			return nil, err
		}

		dispatcher.Register(models.NotificationChannelEmail, sender)
	}

	logger.InfoContext(ctx, "Notification channels configured", "channels", dispatcher.Channels())

	return dispatcher, nil
}
