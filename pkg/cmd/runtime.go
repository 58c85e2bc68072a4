package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowgraph/pkg/notify"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/dukex/flowgraph/pkg/tasks"
	"github.com/dukex/flowgraph/pkg/workflow"
)

// RuntimeConfig holds everything needed to execute workflows in one process.
type RuntimeConfig struct {
	DatabaseURL      string
	Notifier         NotifierConfig
	Agents           []string // name=command pairs
	MaxParallelNodes int
	Wait             protocol.WaitOptions
	ExecutorOptions  []workflow.Option
}

// Runtime owns the persistence, collaborators and engine of a binary.
type Runtime struct {
	*Engine

	Store    persistence.Persistence
	Tasks    *tasks.LocalRunner
	Notifier *notify.Dispatcher
}

// ParseAgents turns name=command pairs into runner options.
func ParseAgents(pairs []string) ([]tasks.Option, error) {
	options := make([]tasks.Option, 0, len(pairs))

	for _, pair := range pairs {
		name, command, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(name) == "" || strings.TrimSpace(command) == "" {
			return nil, fmt.Errorf("invalid agent %q, expected name=command", pair)
		}

		options = append(options, tasks.WithAgent(strings.TrimSpace(name), strings.TrimSpace(command)))
	}

	return options, nil
}

func NewRuntime(ctx context.Context, logger *slog.Logger, cfg RuntimeConfig) (*Runtime, error) {
	agents, err := ParseAgents(cfg.Agents)
	if err != nil {
		return nil, err
	}

	notifier, err := NewNotifier(ctx, logger, cfg.Notifier)
	if err != nil {
		return nil, fmt.Errorf("failed to configure notifications: %w", err)
	}

	store, err := NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	runner := tasks.NewLocalRunner(logger, agents...)

	opts := append([]workflow.Option{workflow.WithMaxParallelNodes(cfg.MaxParallelNodes)}, cfg.ExecutorOptions...)

	return &Runtime{
		Engine:   NewEngine(logger, store, runner, notifier, cfg.Wait, opts...),
		Store:    store,
		Tasks:    runner,
		Notifier: notifier,
	}, nil
}

// Close waits for background executions, then releases the runner and the store.
func (r *Runtime) Close(ctx context.Context) error {
	r.Executor.Wait()

	return errors.Join(r.Tasks.Close(), r.Store.Close(ctx))
}
