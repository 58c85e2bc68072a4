// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// HealthChecker reports the health of one dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (string, bool)
}

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	validator        *validator.Validate
	registry         HealthChecker
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	validator *validator.Validate,
	registry HealthChecker,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		validator:        validator,
		registry:         registry,
	}
}

// Register mounts every route on app.
func (h *APIHandlers) Register(app *fiber.App) {
	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Post("/validate", h.ValidateWorkflow)
	w.Post("/import", h.ImportWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Get("/:id/export", h.ExportWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	app.Post("/webhooks/:id", h.Webhook)

	e := app.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Post("/:id/cancel", h.CancelExecution)

	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req := services.ListWorkflowsRequest{Status: models.WorkflowStatus(c.Query("status"))}

	workflows, err := h.workflowService.ListWorkflows(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck(c.Context())
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "flowgraph API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "flowgraph API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	req.Apply(existing)

	updated, err := h.workflowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateWorkflow reports on any JSON candidate without storing it.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	var candidate any
	if err := json.Unmarshal(c.Body(), &candidate); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	return c.JSON(h.workflowService.Validate(candidate))
}

func (h *APIHandlers) ImportWorkflow(c fiber.Ctx) error {
	var document map[string]any
	if err := json.Unmarshal(c.Body(), &document); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow, report, err := h.workflowService.Import(c.Context(), document)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ImportResponse{Workflow: workflow, Report: report})
}

func (h *APIHandlers) ExportWorkflow(c fiber.Ctx) error {
	exported, err := h.workflowService.Export(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Attachment(c.Params("id") + ".json")

	return c.JSON(exported)
}

// ExecuteWorkflow starts a run with the request body as trigger data.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	data, err := optionalBody(c)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	// The run outlives the request.
	execution, err := h.executionService.Execute(context.Background(), c.Params("id"), data)
	if err != nil {
		return handleServiceError(c, err)
	}

	return accepted(c, execution)
}

func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	body, err := optionalBody(c)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	execution, err := h.executionService.Webhook(context.Background(), c.Params("id"), body)
	if err != nil {
		return handleServiceError(c, err)
	}

	return accepted(c, execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	executions, err := h.executionService.ListByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")

	err := h.executionService.Cancel(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"cancelled":    true,
		"execution_id": id,
	})
}

func optionalBody(c fiber.Ctx) (any, error) {
	if len(c.Body()) == 0 {
		return nil, nil
	}

	var data any

	err := json.Unmarshal(c.Body(), &data)

	return data, err
}

func accepted(c fiber.Ctx, execution *models.Execution) error {
	return c.Status(fiber.StatusAccepted).JSON(ExecutionAccepted{
		Accepted:    true,
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
	})
}
