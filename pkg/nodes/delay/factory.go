package delay

import (
	"context"
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// DelayNodeFactory creates DelayNode instances.
type DelayNodeFactory struct {
	sleep SleepFunc
}

// Option configures a DelayNodeFactory.
type Option func(*DelayNodeFactory)

// WithSleep replaces the function used to wait.
func WithSleep(sleep SleepFunc) Option {
	return func(f *DelayNodeFactory) {
		f.sleep = sleep
	}
}

// Create creates a new DelayNode instance.
func (f *DelayNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	data, ok := node.Data.(*models.DelayData)
	if !ok {
		return nil, fmt.Errorf("node %s: expected delay data, got %T", node.ID, node.Data)
	}

	return NewDelayNode(node.ID, data, f.sleep)
}

// Type returns the node type built by this factory.
func (f *DelayNodeFactory) Type() models.NodeType {
	return models.NodeTypeDelay
}

// Name returns the factory name.
func (f *DelayNodeFactory) Name() string {
	return "Delay"
}

// Description returns the factory description.
func (f *DelayNodeFactory) Description() string {
	return "Waits for a fixed number of milliseconds before the workflow continues"
}

// Schema returns the JSON schema for Delay node data.
func (f *DelayNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"delayMs": map[string]any{
				"type":     "integer",
				"minimum":  0,
				"examples": []int{1000, 60000},
			},
		},
		"required": []string{"delayMs"},
	}
}

// NewDelayNodeFactory creates a new factory instance.
func NewDelayNodeFactory(opts ...Option) protocol.NodeFactory {
	factory := &DelayNodeFactory{sleep: Sleep}
	for _, opt := range opts {
		opt(factory)
	}

	return factory
}
