package subworkflow

import (
	"context"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// SubworkflowNodeFactory creates SubworkflowNode instances bound to a runner.
type SubworkflowNodeFactory struct {
	runner protocol.SubflowRunner
}

// Create creates a new SubworkflowNode instance.
func (f *SubworkflowNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	data, ok := node.Data.(*models.SubworkflowData)
	if !ok {
		return nil, fmt.Errorf("node %s: expected subworkflow data, got %T", node.ID, node.Data)
	}

	return NewSubworkflowNode(node.ID, data, f.runner)
}

// Type returns the node type built by this factory.
func (f *SubworkflowNodeFactory) Type() models.NodeType {
	return models.NodeTypeSubworkflow
}

// Name returns the factory name.
func (f *SubworkflowNodeFactory) Name() string {
	return "Subworkflow"
}

// Description returns the factory description.
func (f *SubworkflowNodeFactory) Description() string {
	return "Runs another workflow with this node input as its trigger payload"
}

// Schema returns the JSON schema for Subworkflow node data.
func (f *SubworkflowNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workflowId": map[string]any{"type": "string"},
		},
		"required": []string{"workflowId"},
	}
}

// NewSubworkflowNodeFactory creates a new factory instance.
func NewSubworkflowNodeFactory(runner protocol.SubflowRunner) protocol.NodeFactory {
	return &SubworkflowNodeFactory{runner: runner}
}
