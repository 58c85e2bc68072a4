// Package notify implements the notification collaborator used by notification nodes.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

var (
	ErrChannelNotConfigured = errors.New("notification channel not configured")
	ErrUnknownChannel       = errors.New("unknown notification channel")
	ErrEmptyMessage         = errors.New("notification message is empty")
)

// Sender delivers a message through one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
}

// Dispatcher routes notifications to the sender configured for their channel.
type Dispatcher struct {
	logger  *slog.Logger
	senders map[models.NotificationChannel]Sender
}

// NewDispatcher creates a dispatcher with no configured channel.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger:  logger.With("module", "notify"),
		senders: map[models.NotificationChannel]Sender{},
	}
}

// Register configures the sender of a channel, replacing any previous one.
func (d *Dispatcher) Register(channel models.NotificationChannel, sender Sender) {
	d.senders[channel] = sender
}

// Channels returns the configured channels.
func (d *Dispatcher) Channels() []models.NotificationChannel {
	channels := make([]models.NotificationChannel, 0, len(d.senders))

	for _, channel := range []models.NotificationChannel{
		models.NotificationChannelDiscord,
		models.NotificationChannelSlack,
		models.NotificationChannelEmail,
	} {
		if _, ok := d.senders[channel]; ok {
			channels = append(channels, channel)
		}
	}

	return channels
}

// Send delivers the notification. Misconfigured or unknown channels and
// delivery failures are returned as errors naming the channel.
func (d *Dispatcher) Send(ctx context.Context, notification protocol.Notification) error {
	switch notification.Channel {
	case models.NotificationChannelDiscord, models.NotificationChannelSlack, models.NotificationChannelEmail:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, notification.Channel)
	}

	if notification.Message == "" {
		return ErrEmptyMessage
	}

	sender, ok := d.senders[notification.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelNotConfigured, notification.Channel)
	}

	if err := sender.Send(ctx, notification.Title, notification.Message); err != nil {
		d.logger.ErrorContext(ctx, "Failed to send notification", "channel", notification.Channel, "error", err)

		return fmt.Errorf("failed to send %s notification: %w", notification.Channel, err)
	}

	d.logger.InfoContext(ctx, "Notification sent", "channel", notification.Channel)

	return nil
}
