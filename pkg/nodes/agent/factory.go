package agent

import (
	"context"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// AgentNodeFactory creates AgentNode instances bound to a task runner.
type AgentNodeFactory struct {
	runner protocol.TaskRunner
	wait   protocol.WaitOptions
}

// Create creates a new AgentNode instance.
func (f *AgentNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	data, ok := node.Data.(*models.AgentData)
	if !ok {
		return nil, fmt.Errorf("node %s: expected agent data, got %T", node.ID, node.Data)
	}

	return NewAgentNode(node.ID, data, f.runner, f.wait)
}

// Type returns the node type built by this factory.
func (f *AgentNodeFactory) Type() models.NodeType {
	return models.NodeTypeAgent
}

// Name returns the factory name.
func (f *AgentNodeFactory) Name() string {
	return "Agent"
}

// Description returns the factory description.
func (f *AgentNodeFactory) Description() string {
	return "Sends a templated prompt to a configured agent and waits for its answer"
}

// Schema returns the JSON schema for Agent node data.
func (f *AgentNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent":  map[string]any{"type": "string", "examples": []string{"reviewer"}},
			"prompt": map[string]any{"type": "string", "description": "Go template rendered against input, trigger and data"},
			"cwd":    map[string]any{"type": "string"},
		},
		"required": []string{"agent", "prompt"},
	}
}

// NewAgentNodeFactory creates a new factory instance.
func NewAgentNodeFactory(runner protocol.TaskRunner, wait protocol.WaitOptions) protocol.NodeFactory {
	return &AgentNodeFactory{runner: runner, wait: wait}
}
