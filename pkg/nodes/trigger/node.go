// Package trigger provides the trigger node, the entry point of a workflow run.
package trigger

import (
	"context"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// TriggerNode outputs the trigger payload of the run.
type TriggerNode struct {
	id   string
	data *models.TriggerData
}

// NewTriggerNode creates a new trigger node.
func NewTriggerNode(id string, data *models.TriggerData) *TriggerNode {
	if data == nil {
		data = &models.TriggerData{}
	}

	return &TriggerNode{id: id, data: data}
}

// ID returns the node ID.
func (n *TriggerNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *TriggerNode) Type() models.NodeType {
	return models.NodeTypeTrigger
}

// Execute returns the run trigger payload.
func (n *TriggerNode) Execute(_ context.Context, input protocol.NodeInput) (any, error) {
	return input.Trigger, nil
}
