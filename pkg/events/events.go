// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every lifecycle event.
const Topic = "flowgraph.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "workflow.execution.started"
	ExecutionCompletedEvent EventType = "workflow.execution.completed"
	ExecutionFailedEvent    EventType = "workflow.execution.failed"
	ExecutionCancelledEvent EventType = "workflow.execution.cancelled"

	// Node events.
	NodeFinishedEvent EventType = "node.execution.finished"
	NodeFailedEvent   EventType = "node.execution.failed"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		Metadata:    make(map[string]any),
	}
}

type ExecutionStarted struct {
	BaseEvent

	StartedAt time.Time `json:"started_at"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	DurationMs   int64          `json:"duration_ms"`
	FinalResults map[string]any `json:"final_results"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	DurationMs     int64          `json:"duration_ms"`
	Error          string         `json:"error"`
	PartialResults map[string]any `json:"partial_results"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	DurationMs int64 `json:"duration_ms"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type NodeFinished struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Output any    `json:"output,omitempty"`
}

func (e NodeFinished) GetType() EventType {
	return NodeFinishedEvent
}

type NodeFailed struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Error  string `json:"error"`
}

func (e NodeFailed) GetType() EventType {
	return NodeFailedEvent
}

// New returns an empty event value for eventType, ready to be decoded into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case ExecutionStartedEvent:
		return &ExecutionStarted{}, true
	case ExecutionCompletedEvent:
		return &ExecutionCompleted{}, true
	case ExecutionFailedEvent:
		return &ExecutionFailed{}, true
	case ExecutionCancelledEvent:
		return &ExecutionCancelled{}, true
	case NodeFinishedEvent:
		return &NodeFinished{}, true
	case NodeFailedEvent:
		return &NodeFailed{}, true
	default:
		return nil, false
	}
}
