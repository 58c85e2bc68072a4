package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/xeipuuv/gojsonschema"
)

// Runner starts and cancels workflow executions.
type Runner interface {
	Start(ctx context.Context, workflowID string, trigger any) (*models.Execution, error)
	Cancel(executionID string) bool
}

// Execution triggers workflows and exposes their execution history.
type Execution struct {
	persistence persistence.Persistence
	runner      Runner
}

func NewExecution(persistence persistence.Persistence, runner Runner) *Execution {
	return &Execution{persistence: persistence, runner: runner}
}

// Execute starts a run of any stored workflow regardless of its status.
func (s *Execution) Execute(ctx context.Context, workflowID string, data any) (*models.Execution, error) {
	return s.runner.Start(ctx, workflowID, data)
}

// Webhook starts a run from an external HTTP call. Only active workflows
// accept webhooks, and the body must satisfy the trigger schema when one is declared.
func (s *Execution) Webhook(ctx context.Context, workflowID string, body any) (*models.Execution, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil, &ServiceError{
			Op:      "Webhook",
			Code:    "WORKFLOW_NOT_ACTIVE",
			Message: fmt.Sprintf("workflow %s is %s", workflowID, workflow.Status),
			Err:     ErrWorkflowNotActive,
		}
	}

	err = checkPayload(workflow, body)
	if err != nil {
		return nil, err
	}

	return s.runner.Start(ctx, workflowID, body)
}

// Cancel requests cancellation of a running execution.
func (s *Execution) Cancel(_ context.Context, executionID string) error {
	if !s.runner.Cancel(executionID) {
		return &ServiceError{
			Op:      "Cancel",
			Code:    "EXECUTION_NOT_RUNNING",
			Message: fmt.Sprintf("execution %s is not running", executionID),
			Err:     ErrExecutionNotRunning,
		}
	}

	return nil
}

// FetchByID returns one execution record.
func (s *Execution) FetchByID(ctx context.Context, executionID string) (*models.Execution, error) {
	return s.persistence.ExecutionRepository().GetByID(ctx, executionID)
}

// ListByWorkflow returns the executions of a workflow, newest first.
func (s *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	if _, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID); err != nil {
		return nil, err
	}

	executions, err := s.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

func triggerSchema(workflow *models.Workflow) map[string]any {
	var fallback map[string]any

	for _, node := range workflow.TriggerNodes() {
		data, ok := node.Data.(*models.TriggerData)
		if !ok || len(data.Schema) == 0 {
			continue
		}

		if data.TriggerType == "webhook" {
			return data.Schema
		}

		if fallback == nil {
			fallback = data.Schema
		}
	}

	return fallback
}

func checkPayload(workflow *models.Workflow, body any) error {
	schema := triggerSchema(workflow)
	if schema == nil {
		return nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(body))
	if err != nil {
		return NewValidationError("Webhook", "INVALID_SCHEMA", err.Error(), ErrInvalidPayload)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, resultError := range result.Errors() {
		messages = append(messages, resultError.String())
	}

	sort.Strings(messages)

	return NewValidationError("Webhook", "INVALID_PAYLOAD", strings.Join(messages, "; "), ErrInvalidPayload)
}
