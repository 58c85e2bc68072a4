// Package main provides the flowgraph API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/flowgraph/pkg/cmd"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/registry"
	"github.com/dukex/flowgraph/pkg/services"
	"github.com/dukex/flowgraph/pkg/validation"
	"github.com/dukex/flowgraph/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	runner      services.Runner
	validate    *validator.Validate
	app         *fiber.App
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	runner services.Runner,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		registry:    registry,
		runner:      runner,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	if a.app != nil {
		return a.app
	}

	graph, err := cmd.NewGraphValidator(a.logger, a.registry)
	if err != nil {
		a.logger.Error("Node schemas are invalid, checking graphs without them", "error", err)

		graph = validation.NewValidator(a.registry.Types()...)
	}

	workflowService := services.NewWorkflow(a.persistence, graph)
	executionService := services.NewExecution(a.persistence, a.runner)

	handlers := web.NewAPIHandlers(workflowService, executionService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := a.registry.HealthCheck(c.Context())

			return ok && a.persistence.HealthCheck(c.Context()) == nil
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowgraph API")
	})

	handlers.Register(app)

	a.app = app

	return app
}

// Start serves the API until ctx is done, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()
	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	a.logger.InfoContext(ctx, "API listening", "port", port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.InfoContext(ctx, "Shutting down API")

		return app.Shutdown()
	}
}
