package web

import (
	"errors"

	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/services"
	"github.com/dukex/flowgraph/pkg/validation"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// reportProblem is a validation problem carrying the full graph report.
type reportProblem struct {
	*problems.Problem

	Report validation.ValidationResult `json:"report"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	var validationErr *services.ValidationError

	switch {
	case errors.As(err, &validationErr):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("invalid_workflow").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(reportProblem{
			Problem: problem,
			Report:  validationErr.Result,
		})

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow_not_found", "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution_not_found", "execution not found")

	case errors.Is(err, services.ErrExecutionNotRunning):
		return notFound(c, "execution_not_running", err.Error())

	case errors.Is(err, persistence.ErrInvalidID):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}
