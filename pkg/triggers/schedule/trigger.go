// Package schedule runs active workflows on their cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/robfig/cron/v3"
)

// WorkflowLister loads every stored workflow.
type WorkflowLister interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
}

type entry struct {
	id       cron.EntryID
	schedule string
}

// Trigger keeps one cron job per schedulable workflow.
type Trigger struct {
	workflows WorkflowLister
	logger    *slog.Logger
	cron      *cron.Cron

	mu       sync.Mutex
	entries  map[string]entry
	callback protocol.TriggerCallback
	ctx      context.Context
}

func NewTrigger(workflows WorkflowLister, logger *slog.Logger) *Trigger {
	logger = logger.With("module", "schedule_trigger")
	cronLogger := &cronLogger{logger: logger}

	return &Trigger{
		workflows: workflows,
		logger:    logger,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		), cron.WithLogger(cronLogger)),
		entries: make(map[string]entry),
	}
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	t.callback = callback
	t.ctx = context.WithoutCancel(ctx)
	t.mu.Unlock()

	err := t.Sync(ctx)
	if err != nil {
		return err
	}

	t.logger.InfoContext(ctx, "Starting schedule trigger")
	t.cron.Start()

	return nil
}

// Sync reloads the workflows and reconciles the registered cron jobs with them.
func (t *Trigger) Sync(ctx context.Context) error {
	workflows, err := t.workflows.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	wanted := make(map[string]*models.Workflow)

	for _, workflow := range workflows {
		if workflow.IsSchedulable() {
			wanted[workflow.ID] = workflow
		}
	}

	for workflowID, current := range t.entries {
		workflow, keep := wanted[workflowID]
		if keep && workflow.Schedule == current.schedule {
			continue
		}

		t.cron.Remove(current.id)
		delete(t.entries, workflowID)
		t.logger.InfoContext(ctx, "Removed schedule", "workflow_id", workflowID)
	}

	for workflowID, workflow := range wanted {
		if _, exists := t.entries[workflowID]; exists {
			continue
		}

		schedule, err := models.ParseSchedule(workflow.Schedule)
		if err != nil {
			continue
		}

		id := t.cron.Schedule(schedule, cron.FuncJob(t.fire(workflowID)))
		t.entries[workflowID] = entry{id: id, schedule: workflow.Schedule}
		t.logger.InfoContext(ctx, "Registered schedule", "workflow_id", workflowID, "schedule", workflow.Schedule)
	}

	return nil
}

// Scheduled returns the registered schedule expression of every workflow.
func (t *Trigger) Scheduled() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	scheduled := make(map[string]string, len(t.entries))
	for workflowID, current := range t.entries {
		scheduled[workflowID] = current.schedule
	}

	return scheduled
}

func (t *Trigger) fire(workflowID string) func() {
	return func() {
		t.mu.Lock()
		callback, ctx := t.callback, t.ctx
		t.mu.Unlock()

		if callback == nil {
			return
		}

		t.logger.InfoContext(ctx, "Schedule fired", "workflow_id", workflowID)

		err := callback(ctx, workflowID, nil)
		if err != nil {
			t.logger.ErrorContext(ctx, "Error executing scheduled workflow", "workflow_id", workflowID, "error", err)
		}
	}
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping schedule trigger")

	select {
	case <-t.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
