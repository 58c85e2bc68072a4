package protocol

import (
	"context"

	"github.com/dukex/flowgraph/pkg/models"
)

// TaskStatus is the state of an external task execution.
type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskRequest describes the external work a task or agent node delegates.
type TaskRequest struct {
	TaskRef string `json:"taskRef"`
	Command string `json:"command"`
	Cwd     string `json:"cwd,omitempty"`
}

// TaskExecution is the state of an external task execution.
type TaskExecution struct {
	ID     string     `json:"id"`
	Status TaskStatus `json:"status"`
	Output string     `json:"output,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// TaskRunner starts external task executions and reports their state.
type TaskRunner interface {
	StartExecution(ctx context.Context, request TaskRequest) (string, error)
	GetExecution(ctx context.Context, executionID string) (*TaskExecution, error)
}

// TaskWaiter is implemented by task runners that can signal completion.
// The returned channel is closed once the execution leaves the running state.
type TaskWaiter interface {
	Done(executionID string) <-chan struct{}
}

// Notification is a message sent through a notification channel.
type Notification struct {
	Channel models.NotificationChannel `json:"channel"`
	Title   string                     `json:"title,omitempty"`
	Message string                     `json:"message"`
}

// Notifier delivers notifications.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

// SubflowRunner runs a workflow as a nested execution and waits for its result.
type SubflowRunner interface {
	RunSubflow(ctx context.Context, workflowID string, trigger any) (*models.ExecutionResult, error)
}
