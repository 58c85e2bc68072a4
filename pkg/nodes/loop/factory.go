package loop

import (
	"context"
	"fmt"

	"github.com/dukex/flowgraph/pkg/condition"
	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// LoopNodeFactory creates LoopNode instances.
type LoopNodeFactory struct {
	subflows protocol.SubflowRunner
}

// Create creates a new LoopNode instance.
func (f *LoopNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	data, ok := node.Data.(*models.LoopData)
	if !ok {
		return nil, fmt.Errorf("node %s: expected loop data, got %T", node.ID, node.Data)
	}

	return NewLoopNode(node.ID, data, f.subflows)
}

// Type returns the node type built by this factory.
func (f *LoopNodeFactory) Type() models.NodeType {
	return models.NodeTypeLoop
}

// Name returns the factory name.
func (f *LoopNodeFactory) Name() string {
	return "Loop"
}

// Description returns the factory description.
func (f *LoopNodeFactory) Description() string {
	return "Repeats a fixed number of times, once per array item, or while a condition holds, optionally running a workflow per iteration"
}

// Schema returns the JSON schema for Loop node data.
func (f *LoopNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"loopType": map[string]any{
				"type": "string",
				"enum": []string{"count", "forEach", "while"},
			},
			"count": map[string]any{"type": "integer", "minimum": 0},
			"itemsPath": map[string]any{
				"type":        "string",
				"description": "Dotted path to an array in the node input; empty uses the input itself",
			},
			"condition": map[string]any{
				"$ref":        "#/definitions/conditionGroup",
				"description": "Condition group evaluated against input, index and item (previous result) before each iteration",
			},
			"maxIterations": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": HardMaxIterations,
				"default": DefaultMaxIterations,
			},
			"workflowId": map[string]any{"type": "string"},
		},
		"required":    []string{"loopType"},
		"definitions": condition.Definitions(),
	}
}

// NewLoopNodeFactory creates a new factory instance.
func NewLoopNodeFactory(subflows protocol.SubflowRunner) protocol.NodeFactory {
	return &LoopNodeFactory{subflows: subflows}
}
