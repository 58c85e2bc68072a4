package models

import "time"

// TriggerDataKey is the reserved executionData key holding the trigger payload of a run.
const TriggerDataKey = "__trigger__"

// ExecutionStatus is the state of a workflow execution.
// The only transition is running to one of the terminal states.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusSuccess   ExecutionStatus = "success"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// Execution is the durable record of one workflow run.
type Execution struct {
	ID            string          `json:"id"`
	WorkflowID    string          `json:"workflowId"`
	Status        ExecutionStatus `json:"status"`
	StartedAt     time.Time       `json:"startedAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	Error         string          `json:"error,omitempty"`
	ExecutionData map[string]any  `json:"executionData"`
}

// ExecutionUpdate is the terminal update applied to an execution record.
type ExecutionUpdate struct {
	Status ExecutionStatus
	Error  string
	Data   map[string]any
}

// NodeOutcome is the result of evaluating one node in one run.
type NodeOutcome struct {
	Success bool   `json:"success"`
	Output  any    `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a successful outcome.
func Succeeded(output any) NodeOutcome {
	return NodeOutcome{Success: true, Output: output}
}

// Failed builds a failed outcome.
func Failed(message string) NodeOutcome {
	return NodeOutcome{Success: false, Error: message}
}

// ExecutionResult is returned to callers of the execution controller.
type ExecutionResult struct {
	Execution *Execution             `json:"execution"`
	Outcomes  map[string]NodeOutcome `json:"outcomes"`
	Skipped   []string               `json:"skipped,omitempty"`
}
