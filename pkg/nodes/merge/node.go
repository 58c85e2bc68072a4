// Package merge provides merge node implementation for joining multiple execution paths.
package merge

import (
	"context"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// MergeNode joins parallel branches; its output is exactly its resolved input,
// a map keyed by source node id when several branches feed it.
type MergeNode struct {
	id string
}

// NewMergeNode creates a new merge node.
func NewMergeNode(id string) *MergeNode {
	return &MergeNode{id: id}
}

// ID returns the node ID.
func (n *MergeNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *MergeNode) Type() models.NodeType {
	return models.NodeTypeMerge
}

// Execute passes the input through.
func (n *MergeNode) Execute(_ context.Context, input protocol.NodeInput) (any, error) {
	return input.Input, nil
}
