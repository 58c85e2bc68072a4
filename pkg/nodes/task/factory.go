package task

import (
	"context"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// TaskNodeFactory creates TaskNode instances bound to a task runner.
type TaskNodeFactory struct {
	runner protocol.TaskRunner
	wait   protocol.WaitOptions
}

// Create creates a new TaskNode instance.
func (f *TaskNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	data, ok := node.Data.(*models.TaskData)
	if !ok {
		return nil, fmt.Errorf("node %s: expected task data, got %T", node.ID, node.Data)
	}

	return NewTaskNode(node.ID, data, f.runner, f.wait)
}

// Type returns the node type built by this factory.
func (f *TaskNodeFactory) Type() models.NodeType {
	return models.NodeTypeTask
}

// Name returns the factory name.
func (f *TaskNodeFactory) Name() string {
	return "Task"
}

// Description returns the factory description.
func (f *TaskNodeFactory) Description() string {
	return "Runs a command through the task runner and waits until it completes or fails"
}

// Schema returns the JSON schema for Task node data.
func (f *TaskNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"taskTemplateId": map[string]any{
				"type":        "string",
				"description": "Reference of the task template this node runs",
			},
			"command": map[string]any{
				"type":        "string",
				"description": "Go template rendered against input, trigger and data",
				"examples":    []string{"make test", "git checkout {{ .trigger.ref }}"},
			},
			"cwd": map[string]any{"type": "string"},
		},
		"required": []string{"taskTemplateId"},
	}
}

// NewTaskNodeFactory creates a new factory instance.
func NewTaskNodeFactory(runner protocol.TaskRunner, wait protocol.WaitOptions) protocol.NodeFactory {
	return &TaskNodeFactory{runner: runner, wait: wait}
}
