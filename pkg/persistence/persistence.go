// Package persistence provides the storage abstraction for workflows and their executions.
package persistence

import (
	"context"

	"github.com/dukex/flowgraph/pkg/models"
)

// Persistence groups the repositories of one storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow graphs.
type WorkflowRepository interface {
	// GetAll returns every workflow, most recently created first
	GetAll(ctx context.Context) ([]*models.Workflow, error)

	// GetByID returns ErrWorkflowNotFound when no workflow has the id
	GetByID(ctx context.Context, id string) (*models.Workflow, error)

	// Save creates or replaces a workflow, maintaining its timestamps
	Save(ctx context.Context, workflow *models.Workflow) error

	// Delete returns ErrWorkflowNotFound when no workflow has the id
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution records.
// Writes to the same execution are serialized by the implementation.
type ExecutionRepository interface {
	// Create stores a new running execution of workflowID
	Create(ctx context.Context, workflowID string) (*models.Execution, error)

	// Update applies the terminal update of a running execution. It succeeds
	// once per execution; later calls return ErrExecutionFinished
	Update(ctx context.Context, id string, update models.ExecutionUpdate) (*models.Execution, error)

	// GetByID returns ErrExecutionNotFound when no execution has the id
	GetByID(ctx context.Context, id string) (*models.Execution, error)

	// ListByWorkflow returns the executions of a workflow, newest first
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)
}
