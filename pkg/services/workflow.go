package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/validation"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

type Workflow struct {
	persistence persistence.Persistence
	graph       *validation.Validator
	validate    *validator.Validate
	now         func() time.Time
}

// NewWorkflow creates a new workflow service. graph checks every stored
// workflow; nil uses the built-in node types.
func NewWorkflow(persistence persistence.Persistence, graph *validation.Validator) *Workflow {
	if graph == nil {
		graph = validation.NewValidator()
	}

	return &Workflow{
		persistence: persistence,
		graph:       graph,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest filters the workflow listing.
type ListWorkflowsRequest struct {
	Status models.WorkflowStatus `validate:"omitempty,oneof=draft active paused"`
}

// ListWorkflows returns the stored workflows, newest first.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) ([]*models.Workflow, error) {
	if err := w.validate.Struct(req); err != nil {
		return nil, NewValidationError("ListWorkflows", "INVALID_STATUS", fmt.Sprintf("invalid status '%s'", req.Status), ErrInvalidStatus)
	}

	workflows, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	filtered := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if req.Status == "" || workflow.Status == req.Status {
			filtered = append(filtered, workflow)
		}
	}

	return filtered, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Validate reports the defects of a candidate graph of unknown shape.
func (w *Workflow) Validate(candidate any) validation.ValidationResult {
	return w.graph.Validate(candidate)
}

// check applies the struct rules and the graph validator; both must pass before a save.
func (w *Workflow) check(op string, workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	err := w.validate.Struct(workflow)
	if err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 && fieldErrors[0].Field() == "Status" {
			return NewValidationError(op, "INVALID_STATUS", fmt.Sprintf("invalid status '%s'", workflow.Status), ErrInvalidStatus)
		}

		return NewValidationError(op, "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	if workflow.Schedule != "" {
		if _, err := models.ParseSchedule(workflow.Schedule); err != nil {
			return NewValidationError(op, "INVALID_SCHEDULE", err.Error(), ErrInvalidRequest)
		}
	}

	result := w.graph.ValidateWorkflow(workflow)
	if !result.Valid {
		return &ValidationError{Op: op, Result: result}
	}

	return nil
}

// Create adds a new workflow to the repository.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	err := w.check("Create", workflow)
	if err != nil {
		return nil, err
	}

	now := w.now()
	workflow.ID = uuid.New().String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces an existing workflow by its ID.
func (w *Workflow) Update(
	ctx context.Context,
	workflowID string,
	workflow *models.Workflow,
) (*models.Workflow, error) {
	existing, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if workflow.Status == "" {
		workflow.Status = existing.Status
	}

	err = w.check("Update", workflow)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = w.now()

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if _, err := w.FetchByID(ctx, workflowID); err != nil {
		return err
	}

	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// Export serializes a stored workflow into the portable export format.
func (w *Workflow) Export(ctx context.Context, workflowID string) (*models.ExportFile, error) {
	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return validation.Export(workflow, w.now()), nil
}

// Import validates, migrates and stores a serialized graph as a new draft workflow.
// An invalid document is rejected with a ValidationError carrying the report.
func (w *Workflow) Import(ctx context.Context, document map[string]any) (*models.Workflow, validation.ValidationResult, error) {
	file, result, err := w.graph.Import(document)
	if err != nil {
		return nil, result, err
	}

	if file == nil {
		return nil, result, &ValidationError{Op: "Import", Result: result}
	}

	workflow, err := w.Create(ctx, &models.Workflow{
		Name:           file.Name,
		Description:    file.Description,
		Status:         models.WorkflowStatusDraft,
		Nodes:          file.Nodes,
		Edges:          file.Edges,
		AutoCreateTask: file.AutoCreateTask,
	})
	if err != nil {
		return nil, result, err
	}

	return workflow, result, nil
}
