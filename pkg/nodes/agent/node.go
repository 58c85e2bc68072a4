// Package agent provides the agent node, which hands a rendered prompt to a
// named agent through the task execution collaborator.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/dukex/flowgraph/pkg/tasks"
	"github.com/dukex/flowgraph/pkg/template"
)

var ErrMissingAgent = errors.New("agent node requires an agent name")

// AgentNode runs an agent as a task with reference "agent:<name>".
type AgentNode struct {
	id     string
	data   *models.AgentData
	runner protocol.TaskRunner
	wait   protocol.WaitOptions
}

// NewAgentNode creates a new agent node.
func NewAgentNode(id string, data *models.AgentData, runner protocol.TaskRunner, wait protocol.WaitOptions) (*AgentNode, error) {
	if data == nil || data.Agent == "" {
		return nil, ErrMissingAgent
	}

	return &AgentNode{id: id, data: data, runner: runner, wait: wait}, nil
}

// ID returns the node ID.
func (n *AgentNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *AgentNode) Type() models.NodeType {
	return models.NodeTypeAgent
}

// Execute renders the prompt and waits for the agent run to finish.
func (n *AgentNode) Execute(ctx context.Context, input protocol.NodeInput) (any, error) {
	prompt, err := template.RenderString(n.data.Prompt, input.TemplateData())
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	output, err := tasks.Run(ctx, n.runner, protocol.TaskRequest{
		TaskRef: tasks.AgentRefPrefix + n.data.Agent,
		Command: prompt,
		Cwd:     n.data.Cwd,
	}, n.wait)
	if err != nil {
		return nil, err
	}

	output["agent"] = n.data.Agent

	return output, nil
}
