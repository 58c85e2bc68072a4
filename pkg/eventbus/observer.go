package eventbus

import (
	"context"
	"log/slog"

	"github.com/dukex/flowgraph/pkg/events"
	"github.com/dukex/flowgraph/pkg/models"
)

// EventBusObserver publishes execution lifecycle transitions as events. Publishing
// failures are logged and never affect the run.
type EventBusObserver struct {
	bus    EventPublisher
	logger *slog.Logger
}

// NewEventBusObserver creates an observer publishing to bus.
func NewEventBusObserver(bus EventPublisher, logger *slog.Logger) *EventBusObserver {
	return &EventBusObserver{bus: bus, logger: logger.With("module", "event_observer")}
}

func (o *EventBusObserver) ExecutionStarted(ctx context.Context, execution *models.Execution) {
	o.publish(ctx, execution.ID, &events.ExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.ExecutionStartedEvent, execution.WorkflowID, execution.ID),
		StartedAt: execution.StartedAt,
	})
}

func (o *EventBusObserver) NodeFinished(ctx context.Context, execution *models.Execution, nodeID string, outcome models.NodeOutcome) {
	if !outcome.Success {
		o.publish(ctx, execution.ID, &events.NodeFailed{
			BaseEvent: events.NewBaseEvent(events.NodeFailedEvent, execution.WorkflowID, execution.ID),
			NodeID:    nodeID,
			Error:     outcome.Error,
		})

		return
	}

	o.publish(ctx, execution.ID, &events.NodeFinished{
		BaseEvent: events.NewBaseEvent(events.NodeFinishedEvent, execution.WorkflowID, execution.ID),
		NodeID:    nodeID,
		Output:    outcome.Output,
	})
}

func (o *EventBusObserver) ExecutionFinished(ctx context.Context, execution *models.Execution) {
	duration := durationMs(execution)

	var event Event

	switch execution.Status {
	case models.ExecutionStatusSuccess:
		event = &events.ExecutionCompleted{
			BaseEvent:    events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID, execution.ID),
			DurationMs:   duration,
			FinalResults: execution.ExecutionData,
		}
	case models.ExecutionStatusFailed:
		event = &events.ExecutionFailed{
			BaseEvent:      events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID, execution.ID),
			DurationMs:     duration,
			Error:          execution.Error,
			PartialResults: execution.ExecutionData,
		}
	case models.ExecutionStatusCancelled:
		event = &events.ExecutionCancelled{
			BaseEvent:  events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID, execution.ID),
			DurationMs: duration,
		}
	default:
		return
	}

	o.publish(ctx, execution.ID, event)
}

func (o *EventBusObserver) publish(ctx context.Context, key string, event Event) {
	if err := o.bus.Publish(ctx, key, event); err != nil {
		o.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"execution_id", key,
			"error", err,
		)
	}
}

func durationMs(execution *models.Execution) int64 {
	if execution.CompletedAt == nil {
		return 0
	}

	return execution.CompletedAt.Sub(execution.StartedAt).Milliseconds()
}

// LogHandler returns a handler that writes every received event to logger.
func LogHandler(logger *slog.Logger) EventHandler {
	return func(ctx context.Context, event any) error {
		typed, ok := event.(Event)
		if !ok {
			return nil
		}

		attrs := []any{"event_type", typed.GetType()}

		switch e := event.(type) {
		case *events.ExecutionFailed:
			attrs = append(attrs, "execution_id", e.ExecutionID, "error", e.Error, "duration_ms", e.DurationMs)
		case *events.ExecutionCompleted:
			attrs = append(attrs, "execution_id", e.ExecutionID, "duration_ms", e.DurationMs)
		case *events.NodeFailed:
			attrs = append(attrs, "execution_id", e.ExecutionID, "node_id", e.NodeID, "error", e.Error)
		}

		logger.InfoContext(ctx, "Lifecycle event", attrs...)

		return nil
	}
}
