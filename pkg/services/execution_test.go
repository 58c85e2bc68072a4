package services

import (
	"context"
	"testing"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/persistence/file"
	"github.com/dukex/flowgraph/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	started  []string
	payloads []any
	running  map[string]bool
}

func (r *recordingRunner) Start(_ context.Context, workflowID string, trigger any) (*models.Execution, error) {
	r.started = append(r.started, workflowID)
	r.payloads = append(r.payloads, trigger)

	return &models.Execution{ID: "exec-" + workflowID, WorkflowID: workflowID, Status: models.ExecutionStatusRunning}, nil
}

func (r *recordingRunner) Cancel(executionID string) bool {
	if !r.running[executionID] {
		return false
	}

	delete(r.running, executionID)

	return true
}

func newExecutionService(t *testing.T, workflows ...*models.Workflow) (*Execution, *recordingRunner, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	for _, workflow := range workflows {
		require.NoError(t, store.WorkflowRepository().Save(t.Context(), workflow))
	}

	runner := &recordingRunner{running: map[string]bool{}}

	return NewExecution(store, runner), runner, store
}

func TestExecution_Webhook(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"ref"},
		"properties": map[string]any{
			"ref": map[string]any{"type": "string"},
		},
	}

	active := testutil.CreateTestWorkflow(
		testutil.WithID("active"),
		testutil.WithNodes(testutil.WebhookTriggerNode("hook", schema), testutil.DelayNode("wait", 1)),
		testutil.WithChain("hook", "wait"),
	)
	paused := testutil.CreateTestWorkflow(testutil.WithID("paused"), testutil.WithStatus(models.WorkflowStatusPaused))
	open := testutil.CreateTestWorkflow(testutil.WithID("open"), testutil.WithNodes(testutil.TriggerNode("t")))

	tests := []struct {
		name       string
		workflowID string
		body       any
		target     error
	}{
		{name: "matching payload", workflowID: "active", body: map[string]any{"ref": "main"}},
		{name: "payload violates schema", workflowID: "active", body: map[string]any{"ref": 42}, target: ErrInvalidPayload},
		{name: "payload missing required field", workflowID: "active", body: map[string]any{}, target: ErrInvalidPayload},
		{name: "no schema accepts anything", workflowID: "open", body: []any{1, 2}},
		{name: "paused workflow", workflowID: "paused", body: map[string]any{}, target: ErrWorkflowNotActive},
		{name: "unknown workflow", workflowID: "ghost", body: map[string]any{}, target: persistence.ErrWorkflowNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, runner, _ := newExecutionService(t, active, paused, open)

			execution, err := service.Webhook(t.Context(), tt.workflowID, tt.body)
			if tt.target != nil {
				require.ErrorIs(t, err, tt.target)
				assert.Empty(t, runner.started)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.workflowID, execution.WorkflowID)
			assert.Equal(t, []any{tt.body}, runner.payloads)
		})
	}
}

func TestExecution_ExecuteIgnoresStatus(t *testing.T) {
	draft := testutil.CreateTestWorkflow(testutil.WithID("draft"), testutil.WithStatus(models.WorkflowStatusDraft))
	service, runner, _ := newExecutionService(t, draft)

	_, err := service.Execute(t.Context(), "draft", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft"}, runner.started)
}

func TestExecution_Cancel(t *testing.T) {
	service, runner, _ := newExecutionService(t)
	runner.running["exec-1"] = true

	require.NoError(t, service.Cancel(t.Context(), "exec-1"))

	err := service.Cancel(t.Context(), "exec-1")
	assert.ErrorIs(t, err, ErrExecutionNotRunning)
	assert.False(t, IsValidationError(err))
}

func TestExecution_History(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(testutil.WithID("wf"))
	service, _, store := newExecutionService(t, workflow)

	created, err := store.ExecutionRepository().Create(t.Context(), "wf")
	require.NoError(t, err)

	executions, err := service.ListByWorkflow(t.Context(), "wf")
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, created.ID, executions[0].ID)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, fetched.Status)

	_, err = service.ListByWorkflow(t.Context(), "ghost")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}
