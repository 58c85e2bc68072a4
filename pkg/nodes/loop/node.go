// Package loop provides the loop node: a bounded count, forEach or while loop
// that optionally runs a workflow once per iteration.
package loop

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowgraph/pkg/condition"
	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/nodes/subworkflow"
	"github.com/dukex/flowgraph/pkg/protocol"
)

const (
	// DefaultMaxIterations applies when maxIterations is not set.
	DefaultMaxIterations = 100

	// HardMaxIterations caps maxIterations regardless of configuration.
	HardMaxIterations = 1000
)

var (
	ErrUnknownLoopType  = errors.New("unknown loop type")
	ErrNegativeCount    = errors.New("loop count must not be negative")
	ErrMissingCondition = errors.New("while loop requires a condition")
	ErrItemsNotArray    = errors.New("loop items do not resolve to an array")
)

// LoopNode iterates over a count, an array in its input or while a condition holds.
type LoopNode struct {
	id       string
	data     *models.LoopData
	subflows protocol.SubflowRunner
}

// NewLoopNode creates a new loop node.
func NewLoopNode(id string, data *models.LoopData, subflows protocol.SubflowRunner) (*LoopNode, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: missing loop data", ErrUnknownLoopType)
	}

	switch data.LoopType {
	case models.LoopTypeCount:
		if data.Count < 0 {
			return nil, ErrNegativeCount
		}
	case models.LoopTypeForEach:
	case models.LoopTypeWhile:
		if data.Condition == nil {
			return nil, ErrMissingCondition
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLoopType, data.LoopType)
	}

	return &LoopNode{id: id, data: data, subflows: subflows}, nil
}

// ID returns the node ID.
func (n *LoopNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *LoopNode) Type() models.NodeType {
	return models.NodeTypeLoop
}

// MaxIterations returns the effective iteration bound.
func (n *LoopNode) MaxIterations() int {
	limit := n.data.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}

	return min(limit, HardMaxIterations)
}

// Execute runs the loop. The output holds the iteration count, one result per
// iteration and whether the iteration bound cut the loop short.
func (n *LoopNode) Execute(ctx context.Context, input protocol.NodeInput) (any, error) {
	limit := n.MaxIterations()
	results := make([]any, 0)
	truncated := false

	iterate := func(index int, item any) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := n.iteration(ctx, index, item, input.Input)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", index, err)
		}

		results = append(results, result)

		return nil
	}

	switch n.data.LoopType {
	case models.LoopTypeCount:
		truncated = n.data.Count > limit

		for index := range min(n.data.Count, limit) {
			if err := iterate(index, index); err != nil {
				return nil, err
			}
		}
	case models.LoopTypeForEach:
		items, err := n.items(input.Input)
		if err != nil {
			return nil, err
		}

		truncated = len(items) > limit

		for index, item := range items[:min(len(items), limit)] {
			if err := iterate(index, item); err != nil {
				return nil, err
			}
		}
	case models.LoopTypeWhile:
		for index := 0; ; index++ {
			// item is the result of the previous iteration, nil before the first.
			scope := map[string]any{"input": input.Input, "index": index, "item": nil}
			if len(results) > 0 {
				scope["item"] = results[len(results)-1]
			}

			holds, err := condition.EvaluateGroup(*n.data.Condition, scope)
			if err != nil {
				return nil, err
			}

			if !holds {
				break
			}

			if index >= limit {
				truncated = true

				break
			}

			if err := iterate(index, index); err != nil {
				return nil, err
			}
		}
	}

	return map[string]any{
		"iterations": len(results),
		"results":    results,
		"truncated":  truncated,
	}, nil
}

func (n *LoopNode) items(input any) ([]any, error) {
	resolved, found := condition.ResolvePath(input, n.data.ItemsPath)
	if !found {
		return nil, fmt.Errorf("%w: %q not found", ErrItemsNotArray, n.data.ItemsPath)
	}

	items, ok := resolved.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T", ErrItemsNotArray, n.data.ItemsPath, resolved)
	}

	return items, nil
}

func (n *LoopNode) iteration(ctx context.Context, index int, item, input any) (any, error) {
	if n.data.WorkflowID == "" {
		return item, nil
	}

	output, err := subworkflow.Run(ctx, n.subflows, n.data.WorkflowID, map[string]any{
		"item":  item,
		"index": index,
		"input": input,
	})
	if err != nil {
		return nil, err
	}

	return output["data"], nil
}
