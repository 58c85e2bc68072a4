package web

import (
	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/validation"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name           string                `json:"name"           validate:"required,min=1"`
	Description    string                `json:"description"`
	Status         models.WorkflowStatus `json:"status"         validate:"omitempty,oneof=draft active paused"`
	Nodes          []*models.Node        `json:"nodes"`
	Edges          []*models.Edge        `json:"edges"`
	AutoCreateTask bool                  `json:"autoCreateTask"`
	Schedule       string                `json:"schedule"`
}

// Workflow builds the model the request describes.
func (r CreateWorkflowRequest) Workflow() *models.Workflow {
	workflow := &models.Workflow{
		Name:           r.Name,
		Description:    r.Description,
		Status:         r.Status,
		Nodes:          r.Nodes,
		Edges:          r.Edges,
		AutoCreateTask: r.AutoCreateTask,
		Schedule:       r.Schedule,
	}

	if workflow.Nodes == nil {
		workflow.Nodes = []*models.Node{}
	}

	if workflow.Edges == nil {
		workflow.Edges = []*models.Edge{}
	}

	return workflow
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name           *string                `json:"name,omitempty"           validate:"omitempty,min=1"`
	Description    *string                `json:"description,omitempty"`
	Status         *models.WorkflowStatus `json:"status,omitempty"         validate:"omitempty,oneof=draft active paused"`
	Nodes          []*models.Node         `json:"nodes,omitempty"`
	Edges          []*models.Edge         `json:"edges,omitempty"`
	AutoCreateTask *bool                  `json:"autoCreateTask,omitempty"`
	Schedule       *string                `json:"schedule,omitempty"`
}

// Apply merges the set fields into workflow.
func (r UpdateWorkflowRequest) Apply(workflow *models.Workflow) {
	if r.Name != nil {
		workflow.Name = *r.Name
	}

	if r.Description != nil {
		workflow.Description = *r.Description
	}

	if r.Status != nil {
		workflow.Status = *r.Status
	}

	if r.Nodes != nil {
		workflow.Nodes = r.Nodes
	}

	if r.Edges != nil {
		workflow.Edges = r.Edges
	}

	if r.AutoCreateTask != nil {
		workflow.AutoCreateTask = *r.AutoCreateTask
	}

	if r.Schedule != nil {
		workflow.Schedule = *r.Schedule
	}
}

// ExecutionAccepted acknowledges a fire-and-forget execution request.
type ExecutionAccepted struct {
	Accepted    bool   `json:"accepted"`
	WorkflowID  string `json:"workflow_id"`
	ExecutionID string `json:"execution_id"`
}

// ImportResponse returns the stored workflow with the report that admitted it.
type ImportResponse struct {
	Workflow *models.Workflow            `json:"workflow"`
	Report   validation.ValidationResult `json:"report"`
}
