package merge

import (
	"context"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// MergeNodeFactory creates MergeNode instances.
type MergeNodeFactory struct{}

// Create creates a new MergeNode instance.
func (f *MergeNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewMergeNode(node.ID), nil
}

// Type returns the node type built by this factory.
func (f *MergeNodeFactory) Type() models.NodeType {
	return models.NodeTypeMerge
}

// Name returns the factory name.
func (f *MergeNodeFactory) Name() string {
	return "Merge"
}

// Description returns the factory description.
func (f *MergeNodeFactory) Description() string {
	return "Merges multiple execution paths into a single output, keyed by the id of each incoming branch"
}

// Schema returns the JSON schema for Merge node data.
func (f *MergeNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": false,
	}
}

// NewMergeNodeFactory creates a new factory instance.
func NewMergeNodeFactory() protocol.NodeFactory {
	return &MergeNodeFactory{}
}
