package conditional

import (
	"context"
	"fmt"

	"github.com/dukex/flowgraph/pkg/condition"
	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// ConditionalNodeFactory creates ConditionalNode instances.
type ConditionalNodeFactory struct{}

// Create creates a new ConditionalNode instance.
func (f *ConditionalNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	data, ok := node.Data.(*models.ConditionalData)
	if !ok {
		return nil, fmt.Errorf("node %s: expected conditional data, got %T", node.ID, node.Data)
	}

	return NewConditionalNode(node.ID, data)
}

// Type returns the node type built by this factory.
func (f *ConditionalNodeFactory) Type() models.NodeType {
	return models.NodeTypeConditional
}

// Name returns the factory name.
func (f *ConditionalNodeFactory) Name() string {
	return "Conditional"
}

// Description returns the factory description.
func (f *ConditionalNodeFactory) Description() string {
	return "Evaluates a condition against its input and continues on the matching true or false branch"
}

// Schema returns the JSON schema for Conditional node data.
func (f *ConditionalNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition":      map[string]any{"$ref": "#/definitions/simpleCondition"},
			"conditionGroup": map[string]any{"$ref": "#/definitions/conditionGroup"},
		},
		"definitions": condition.Definitions(),
		"examples": []map[string]any{
			{"condition": map[string]any{"field": "status", "operator": "equals", "value": "ok"}},
			{"conditionGroup": map[string]any{
				"operator": "OR",
				"conditions": []map[string]any{
					{"field": "retries", "operator": "greater_than", "value": 3},
					{"field": "error", "operator": "contains", "value": "timeout"},
				},
			}},
		},
	}
}

// NewConditionalNodeFactory creates a new factory instance.
func NewConditionalNodeFactory() protocol.NodeFactory {
	return &ConditionalNodeFactory{}
}
