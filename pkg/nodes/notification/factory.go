package notification

import (
	"context"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// NotificationNodeFactory creates NotificationNode instances bound to a notifier.
type NotificationNodeFactory struct {
	notifier protocol.Notifier
}

// Create creates a new NotificationNode instance.
func (f *NotificationNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	data, ok := node.Data.(*models.NotificationData)
	if !ok {
		return nil, fmt.Errorf("node %s: expected notification data, got %T", node.ID, node.Data)
	}

	return NewNotificationNode(node.ID, data, f.notifier)
}

// Type returns the node type built by this factory.
func (f *NotificationNodeFactory) Type() models.NodeType {
	return models.NodeTypeNotification
}

// Name returns the factory name.
func (f *NotificationNodeFactory) Name() string {
	return "Notification"
}

// Description returns the factory description.
func (f *NotificationNodeFactory) Description() string {
	return "Sends a templated message to Discord, Slack or email"
}

// Schema returns the JSON schema for Notification node data.
func (f *NotificationNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type": "string",
				"enum": []string{"discord", "slack", "email"},
			},
			"title": map[string]any{
				"type":        "string",
				"description": "Go template rendered against input, trigger and data",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Go template rendered against input, trigger and data",
				"examples":    []string{"Build {{ .input.status }} for {{ .trigger.ref }}"},
			},
		},
		"required": []string{"channel", "message"},
	}
}

// NewNotificationNodeFactory creates a new factory instance.
func NewNotificationNodeFactory(notifier protocol.Notifier) protocol.NodeFactory {
	return &NotificationNodeFactory{notifier: notifier}
}
