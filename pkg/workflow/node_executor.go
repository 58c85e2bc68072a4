// Package workflow runs workflow graphs: it levels the graph, dispatches nodes
// level by level and records the outcome of every run.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/otelhelper"
	"github.com/dukex/flowgraph/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NodeCreator builds the strategy for a workflow node. *registry.Registry satisfies it.
type NodeCreator interface {
	CreateNode(ctx context.Context, node *models.Node) (protocol.Node, error)
}

// NodeExecutor evaluates single nodes. It never returns an error: every failure,
// including a panicking strategy, is captured in the outcome.
type NodeExecutor struct {
	creator NodeCreator
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewNodeExecutor creates a node executor backed by creator.
func NewNodeExecutor(creator NodeCreator, logger *slog.Logger, tracer trace.Tracer) *NodeExecutor {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &NodeExecutor{
		creator: creator,
		logger:  logger.With("module", "node_executor"),
		tracer:  tracer,
	}
}

// Execute runs one node against its resolved input.
func (e *NodeExecutor) Execute(ctx context.Context, node *models.Node, input protocol.NodeInput) (outcome models.NodeOutcome) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "node.execute",
		attribute.String(otelhelper.ExecutionIDKey, input.ExecutionID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	logger := e.logger.With(
		"execution_id", input.ExecutionID,
		"node_id", node.ID,
		"node_type", node.Type,
	)

	defer func() {
		if r := recover(); r != nil {
			outcome = models.Failed(fmt.Sprintf("node %s panicked: %v", node.ID, r))

			logger.ErrorContext(ctx, "Node panicked", "panic", r)
			otelhelper.SetError(span, fmt.Errorf("%s", outcome.Error))
		}
	}()

	strategy, err := e.creator.CreateNode(ctx, node)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create node", "error", err)
		otelhelper.SetError(span, err)

		return models.Failed(err.Error())
	}

	output, err := strategy.Execute(ctx, input)
	if err != nil {
		logger.InfoContext(ctx, "Node failed", "error", err)
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))

		return models.Failed(err.Error())
	}

	logger.DebugContext(ctx, "Node completed")
	otelhelper.SetStatus(span, "success")

	return models.Succeeded(output)
}
