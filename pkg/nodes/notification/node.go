// Package notification provides the notification node, which sends a rendered
// message through the notification collaborator.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/dukex/flowgraph/pkg/template"
)

var (
	ErrNoNotifier     = errors.New("no notifier configured")
	ErrMissingChannel = errors.New("notification node requires a channel")
)

// NotificationNode renders its title and message against the node input and sends them.
type NotificationNode struct {
	id       string
	data     *models.NotificationData
	notifier protocol.Notifier
}

// NewNotificationNode creates a new notification node.
func NewNotificationNode(id string, data *models.NotificationData, notifier protocol.Notifier) (*NotificationNode, error) {
	if data == nil || data.Channel == "" {
		return nil, ErrMissingChannel
	}

	return &NotificationNode{id: id, data: data, notifier: notifier}, nil
}

// ID returns the node ID.
func (n *NotificationNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *NotificationNode) Type() models.NodeType {
	return models.NodeTypeNotification
}

// Execute sends the notification. A delivery failure fails the node.
func (n *NotificationNode) Execute(ctx context.Context, input protocol.NodeInput) (any, error) {
	if n.notifier == nil {
		return nil, ErrNoNotifier
	}

	data := input.TemplateData()

	title, err := template.RenderString(n.data.Title, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render title: %w", err)
	}

	message, err := template.RenderString(n.data.Message, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}

	notification := protocol.Notification{
		Channel: n.data.Channel,
		Title:   title,
		Message: message,
	}

	if err := n.notifier.Send(ctx, notification); err != nil {
		return nil, err
	}

	return map[string]any{
		"channel": string(notification.Channel),
		"title":   notification.Title,
		"message": notification.Message,
		"sent":    true,
	}, nil
}
