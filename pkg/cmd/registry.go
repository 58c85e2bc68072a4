// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/dukex/flowgraph/pkg/registry"
	"github.com/dukex/flowgraph/pkg/validation"
	"github.com/dukex/flowgraph/pkg/workflow"
)

// Engine bundles the node registry and the executor built on it.
type Engine struct {
	Registry *registry.Registry
	Executor *workflow.Executor
}

// NewEngine wires the registry and the executor. The subworkflow and loop
// factories need the executor, so default nodes are registered after it exists.
func NewEngine(
	logger *slog.Logger,
	store persistence.Persistence,
	tasks protocol.TaskRunner,
	notifier protocol.Notifier,
	wait protocol.WaitOptions,
	opts ...workflow.Option,
) *Engine {
	reg := registry.NewRegistry(logger)
	executor := workflow.NewExecutor(store, reg, logger, opts...)

	reg.RegisterDefaultNodes(protocol.Dependencies{
		Logger:   logger,
		Tasks:    tasks,
		Notifier: notifier,
		Subflows: executor,
		Wait:     wait,
	})

	return &Engine{Registry: reg, Executor: executor}
}

// NewGraphValidator builds a validator for the node types of reg that checks
// node data against each factory's schema. A nil reg uses the built-in nodes.
func NewGraphValidator(logger *slog.Logger, reg *registry.Registry) (*validation.Validator, error) {
	if reg == nil {
		reg = registry.NewRegistry(logger)
		reg.RegisterDefaultNodes(protocol.Dependencies{Logger: logger})
	}

	return validation.NewSchemaValidator(reg.Schemas())
}
