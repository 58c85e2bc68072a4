package protocol

import (
	"context"

	"github.com/dukex/flowgraph/pkg/models"
)

// Observer is notified about execution lifecycle transitions.
type Observer interface {
	ExecutionStarted(ctx context.Context, execution *models.Execution)
	NodeFinished(ctx context.Context, execution *models.Execution, nodeID string, outcome models.NodeOutcome)
	ExecutionFinished(ctx context.Context, execution *models.Execution)
}

// Observers fans every notification out to a list of observers.
type Observers []Observer

func (o Observers) ExecutionStarted(ctx context.Context, execution *models.Execution) {
	for _, observer := range o {
		observer.ExecutionStarted(ctx, execution)
	}
}

func (o Observers) NodeFinished(ctx context.Context, execution *models.Execution, nodeID string, outcome models.NodeOutcome) {
	for _, observer := range o {
		observer.NodeFinished(ctx, execution, nodeID, outcome)
	}
}

func (o Observers) ExecutionFinished(ctx context.Context, execution *models.Execution) {
	for _, observer := range o {
		observer.ExecutionFinished(ctx, execution)
	}
}
