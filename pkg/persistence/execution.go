package persistence

import (
	"strings"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/google/uuid"
)

// NewExecution builds the running record every backend stores on Create.
func NewExecution(workflowID string, startedAt time.Time) *models.Execution {
	return &models.Execution{
		ID:            uuid.NewString(),
		WorkflowID:    workflowID,
		Status:        models.ExecutionStatusRunning,
		StartedAt:     startedAt.UTC(),
		ExecutionData: map[string]any{},
	}
}

// ApplyUpdate moves a running execution to the terminal state of update.
// It enforces the one-way running to terminal transition.
func ApplyUpdate(execution *models.Execution, update models.ExecutionUpdate, completedAt time.Time) error {
	if !update.Status.IsTerminal() {
		return ErrInvalidExecutionStatus
	}

	if execution.Status.IsTerminal() {
		return ErrExecutionFinished
	}

	completed := completedAt.UTC()

	execution.Status = update.Status
	execution.Error = update.Error
	execution.CompletedAt = &completed

	if update.Data != nil {
		execution.ExecutionData = update.Data
	}

	if execution.ExecutionData == nil {
		execution.ExecutionData = map[string]any{}
	}

	return nil
}

// ValidateID rejects identifiers that are empty or could escape a storage directory.
func ValidateID(id string) error {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return ErrInvalidID
	}

	return nil
}
