// Package protocol defines the interfaces and contracts for pluggable nodes and
// the collaborators the execution engine depends on.
package protocol

import (
	"context"

	"github.com/dukex/flowgraph/pkg/models"
)

// NodeInput is the read-only view a node receives when it executes.
type NodeInput struct {
	// ExecutionID identifies the run the node belongs to
	ExecutionID string

	// WorkflowID identifies the workflow being executed
	WorkflowID string

	// Input is the resolved input: the trigger payload, a single source output,
	// or a map of source id to output when several edges feed the node
	Input any

	// Trigger is the trigger payload of the whole run
	Trigger any

	// Data is a snapshot of the outputs produced so far, keyed by node id
	Data map[string]any
}

// TemplateData returns the value templates are rendered against.
func (in NodeInput) TemplateData() map[string]any {
	return map[string]any{
		"input":   in.Input,
		"trigger": in.Trigger,
		"data":    in.Data,
	}
}

// Node is an executable strategy for one workflow node.
type Node interface {
	// ID returns the workflow node id
	ID() string

	// Type returns the node variant handled by this strategy
	Type() models.NodeType

	// Execute runs the node and returns its output
	Execute(ctx context.Context, input NodeInput) (any, error)
}

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a node strategy for the given workflow node
	Create(ctx context.Context, node *models.Node) (Node, error)

	// Type returns the node variant this factory builds
	Type() models.NodeType

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema of the node data payload
	Schema() map[string]any
}
