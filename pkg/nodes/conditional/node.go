// Package conditional provides conditional branching node implementation for workflow graph execution.
package conditional

import (
	"context"
	"errors"
	"strconv"

	"github.com/dukex/flowgraph/pkg/condition"
	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// Branch handles matched against edge sourceHandle values.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

var ErrMissingCondition = errors.New("conditional node requires a condition or conditionGroup")

// ConditionalNode evaluates its condition against the node input and reports
// which branch the run continues on.
type ConditionalNode struct {
	id   string
	data *models.ConditionalData
}

// NewConditionalNode creates a new conditional branching node.
func NewConditionalNode(id string, data *models.ConditionalData) (*ConditionalNode, error) {
	if data == nil || (data.Condition == nil && data.ConditionGroup == nil) {
		return nil, ErrMissingCondition
	}

	return &ConditionalNode{id: id, data: data}, nil
}

// ID returns the node ID.
func (n *ConditionalNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *ConditionalNode) Type() models.NodeType {
	return models.NodeTypeConditional
}

// Execute evaluates conditionGroup when present, else the single condition.
// The output carries the boolean result and the branch handle.
func (n *ConditionalNode) Execute(_ context.Context, input protocol.NodeInput) (any, error) {
	var result bool

	if n.data.ConditionGroup != nil {
		evaluated, err := condition.EvaluateGroup(*n.data.ConditionGroup, input.Input)
		if err != nil {
			return nil, err
		}

		result = evaluated
	} else {
		result = condition.EvaluateSimple(*n.data.Condition, input.Input)
	}

	return map[string]any{
		"result": result,
		"branch": strconv.FormatBool(result),
	}, nil
}

// Branch extracts the branch handle from a conditional node output.
func Branch(output any) (string, bool) {
	values, ok := output.(map[string]any)
	if !ok {
		return "", false
	}

	branch, ok := values["branch"].(string)

	return branch, ok
}
