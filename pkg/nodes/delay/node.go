// Package delay provides the delay node, which suspends a run for a fixed duration.
package delay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

var ErrNegativeDelay = errors.New("delayMs must not be negative")

// SleepFunc blocks for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits on a timer, returning early with the context error.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DelayNode suspends for its configured duration and passes its input through.
type DelayNode struct {
	id    string
	delay time.Duration
	sleep SleepFunc
}

// NewDelayNode creates a new delay node.
func NewDelayNode(id string, data *models.DelayData, sleep SleepFunc) (*DelayNode, error) {
	if data == nil {
		data = &models.DelayData{}
	}

	if data.DelayMs < 0 {
		return nil, ErrNegativeDelay
	}

	if sleep == nil {
		sleep = Sleep
	}

	return &DelayNode{
		id:    id,
		delay: time.Duration(data.DelayMs) * time.Millisecond,
		sleep: sleep,
	}, nil
}

// ID returns the node ID.
func (n *DelayNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *DelayNode) Type() models.NodeType {
	return models.NodeTypeDelay
}

// Execute sleeps and records the delay that was applied.
func (n *DelayNode) Execute(ctx context.Context, input protocol.NodeInput) (any, error) {
	started := time.Now()

	if err := n.sleep(ctx, n.delay); err != nil {
		return nil, fmt.Errorf("delay interrupted after %s: %w", time.Since(started).Round(time.Millisecond), err)
	}

	return map[string]any{
		"delayMs":   n.delay.Milliseconds(),
		"appliedMs": time.Since(started).Milliseconds(),
		"input":     input.Input,
	}, nil
}
