// Package subworkflow provides the subworkflow node, which runs another
// workflow as a nested execution.
package subworkflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

var (
	ErrMissingWorkflow  = errors.New("subworkflow node requires a workflowId")
	ErrNoSubflowRunner  = errors.New("no subworkflow runner configured")
	ErrSubflowCancelled = errors.New("subworkflow cancelled")
)

// SubworkflowNode runs the referenced workflow with the node input as trigger payload.
type SubworkflowNode struct {
	id     string
	data   *models.SubworkflowData
	runner protocol.SubflowRunner
}

// NewSubworkflowNode creates a new subworkflow node.
func NewSubworkflowNode(id string, data *models.SubworkflowData, runner protocol.SubflowRunner) (*SubworkflowNode, error) {
	if data == nil || data.WorkflowID == "" {
		return nil, ErrMissingWorkflow
	}

	return &SubworkflowNode{id: id, data: data, runner: runner}, nil
}

// ID returns the node ID.
func (n *SubworkflowNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *SubworkflowNode) Type() models.NodeType {
	return models.NodeTypeSubworkflow
}

// Execute runs the nested workflow and fails unless it ends in success.
func (n *SubworkflowNode) Execute(ctx context.Context, input protocol.NodeInput) (any, error) {
	return Run(ctx, n.runner, n.data.WorkflowID, input.Input)
}

// Run executes workflowID through runner and summarizes the nested execution.
func Run(ctx context.Context, runner protocol.SubflowRunner, workflowID string, trigger any) (map[string]any, error) {
	if runner == nil {
		return nil, ErrNoSubflowRunner
	}

	result, err := runner.RunSubflow(ctx, workflowID, trigger)
	if err != nil {
		return nil, fmt.Errorf("subworkflow %s: %w", workflowID, err)
	}

	execution := result.Execution

	switch execution.Status {
	case models.ExecutionStatusSuccess:
	case models.ExecutionStatusCancelled:
		return nil, fmt.Errorf("%w: %s", ErrSubflowCancelled, workflowID)
	default:
		return nil, fmt.Errorf("subworkflow %s %s: %s", workflowID, execution.Status, execution.Error)
	}

	return map[string]any{
		"executionId": execution.ID,
		"workflowId":  workflowID,
		"status":      string(execution.Status),
		"data":        execution.ExecutionData,
	}, nil
}
