package trigger

import (
	"context"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// TriggerNodeFactory creates TriggerNode instances.
type TriggerNodeFactory struct{}

// Create creates a new TriggerNode instance.
func (f *TriggerNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	switch data := node.Data.(type) {
	case nil:
		return NewTriggerNode(node.ID, nil), nil
	case *models.TriggerData:
		return NewTriggerNode(node.ID, data), nil
	default:
		return nil, fmt.Errorf("node %s: expected trigger data, got %T", node.ID, node.Data)
	}
}

// Type returns the node type built by this factory.
func (f *TriggerNodeFactory) Type() models.NodeType {
	return models.NodeTypeTrigger
}

// Name returns the factory name.
func (f *TriggerNodeFactory) Name() string {
	return "Trigger"
}

// Description returns the factory description.
func (f *TriggerNodeFactory) Description() string {
	return "Starts the workflow with the payload received from a webhook, schedule, queue or manual run"
}

// Schema returns the JSON schema for Trigger node data.
func (f *TriggerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"label": map[string]any{"type": "string"},
			"triggerType": map[string]any{
				"type": "string",
				"enum": []string{"manual", "webhook", "schedule", "queue"},
			},
			"schema": map[string]any{
				"type":        "object",
				"description": "JSON schema webhook payloads must satisfy",
			},
		},
	}
}

// NewTriggerNodeFactory creates a new factory instance.
func NewTriggerNodeFactory() protocol.NodeFactory {
	return &TriggerNodeFactory{}
}
