package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// MaxSubflowDepth bounds how deeply workflows may call other workflows.
const MaxSubflowDepth = 5

var (
	// ErrRecursiveSubflow is returned when a workflow calls a workflow already running above it.
	ErrRecursiveSubflow = errors.New("recursive subworkflow call")

	// ErrSubflowDepthExceeded is returned when nesting goes beyond MaxSubflowDepth.
	ErrSubflowDepthExceeded = errors.New("subworkflow depth exceeded")
)

type chainKey struct{}

// callChain lists the workflow ids of the enclosing executions, outermost first.
func callChain(ctx context.Context) []string {
	chain, _ := ctx.Value(chainKey{}).([]string)

	return chain
}

func withCallChain(ctx context.Context, workflowID string) context.Context {
	chain := callChain(ctx)

	next := make([]string, 0, len(chain)+1)
	next = append(next, chain...)
	next = append(next, workflowID)

	return context.WithValue(ctx, chainKey{}, next)
}

// checkSubflow reports whether workflowID may be started from the execution carried by ctx.
func checkSubflow(ctx context.Context, workflowID string) error {
	chain := callChain(ctx)

	if slices.Contains(chain, workflowID) {
		return fmt.Errorf("%w: %s is already running in %v", ErrRecursiveSubflow, workflowID, chain)
	}

	if len(chain) > MaxSubflowDepth {
		return fmt.Errorf("%w: limit is %d", ErrSubflowDepthExceeded, MaxSubflowDepth)
	}

	return nil
}

type runKey struct{}

func withRun(ctx context.Context, r *run) context.Context {
	return context.WithValue(ctx, runKey{}, r)
}

func parentRun(ctx context.Context) *run {
	r, _ := ctx.Value(runKey{}).(*run)

	return r
}
