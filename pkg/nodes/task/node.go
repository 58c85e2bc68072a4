// Package task provides the task node, which delegates a command to the task
// execution collaborator and waits for it to finish.
package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/dukex/flowgraph/pkg/tasks"
	"github.com/dukex/flowgraph/pkg/template"
)

var ErrMissingTaskTemplate = errors.New("task node requires a taskTemplateId")

// TaskNode runs an external task.
type TaskNode struct {
	id     string
	data   *models.TaskData
	runner protocol.TaskRunner
	wait   protocol.WaitOptions
}

// NewTaskNode creates a new task node.
func NewTaskNode(id string, data *models.TaskData, runner protocol.TaskRunner, wait protocol.WaitOptions) (*TaskNode, error) {
	if data == nil || data.TaskTemplateID == "" {
		return nil, ErrMissingTaskTemplate
	}

	return &TaskNode{id: id, data: data, runner: runner, wait: wait}, nil
}

// ID returns the node ID.
func (n *TaskNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *TaskNode) Type() models.NodeType {
	return models.NodeTypeTask
}

// Execute renders the command, starts it and waits for a terminal state.
func (n *TaskNode) Execute(ctx context.Context, input protocol.NodeInput) (any, error) {
	command, err := template.RenderString(n.data.Command, input.TemplateData())
	if err != nil {
		return nil, fmt.Errorf("failed to render command: %w", err)
	}

	return tasks.Run(ctx, n.runner, protocol.TaskRequest{
		TaskRef: n.data.TaskTemplateID,
		Command: command,
		Cwd:     n.data.Cwd,
	}, n.wait)
}
