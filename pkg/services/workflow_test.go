package services

import (
	"testing"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/persistence/file"
	"github.com/dukex/flowgraph/pkg/testutil"
	"github.com/dukex/flowgraph/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflowService(t *testing.T) *Workflow {
	t.Helper()

	return NewWorkflow(file.NewPersistence(t.TempDir()), nil)
}

func linearWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:        "Deploy",
		Description: "Build then notify",
		Nodes: []*models.Node{
			testutil.TriggerNode("start"),
			testutil.TaskNode("build", "tpl-build"),
		},
		Edges: []*models.Edge{{ID: "e1", Source: "start", Target: "build"}},
	}
}

func TestWorkflow_Create(t *testing.T) {
	service := newWorkflowService(t)

	created, err := service.Create(t.Context(), linearWorkflow())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deploy", fetched.Name)
	assert.Len(t, fetched.Nodes, 2)
}

func TestWorkflow_CreateRejects(t *testing.T) {
	tests := []struct {
		name     string
		workflow func() *models.Workflow
		target   error
	}{
		{
			name:     "nil workflow",
			workflow: func() *models.Workflow { return nil },
			target:   ErrWorkflowNil,
		},
		{
			name: "missing name",
			workflow: func() *models.Workflow {
				w := linearWorkflow()
				w.Name = ""

				return w
			},
			target: ErrInvalidRequest,
		},
		{
			name: "unknown status",
			workflow: func() *models.Workflow {
				w := linearWorkflow()
				w.Status = "archived"

				return w
			},
			target: ErrInvalidStatus,
		},
		{
			name: "bad schedule",
			workflow: func() *models.Workflow {
				w := linearWorkflow()
				w.Schedule = "every tuesday"

				return w
			},
			target: ErrInvalidRequest,
		},
		{
			name: "dangling edge",
			workflow: func() *models.Workflow {
				w := linearWorkflow()
				w.Edges = append(w.Edges, &models.Edge{ID: "e2", Source: "build", Target: "ghost"})

				return w
			},
			target: ErrInvalidWorkflow,
		},
		{
			name: "task without template",
			workflow: func() *models.Workflow {
				w := linearWorkflow()
				w.Nodes[1] = testutil.TaskNode("build", "")

				return w
			},
			target: ErrInvalidWorkflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newWorkflowService(t)

			_, err := service.Create(t.Context(), tt.workflow())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestWorkflow_CreateRejectionCarriesReport(t *testing.T) {
	service := newWorkflowService(t)

	w := linearWorkflow()
	w.Edges[0].Target = "missing"

	_, err := service.Create(t.Context(), w)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.False(t, validationErr.Result.Valid)
	assert.NotEmpty(t, validationErr.Result.Errors)
	assert.Equal(t, validation.CompatibilityNone, validationErr.Result.Compatibility)
}

func TestWorkflow_Update(t *testing.T) {
	service := newWorkflowService(t)

	created, err := service.Create(t.Context(), linearWorkflow())
	require.NoError(t, err)

	replacement := linearWorkflow()
	replacement.Name = "Deploy v2"
	replacement.Status = models.WorkflowStatusActive

	updated, err := service.Update(t.Context(), created.ID, replacement)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Deploy v2", updated.Name)
	assert.Equal(t, models.WorkflowStatusActive, updated.Status)

	_, err = service.Update(t.Context(), "missing", linearWorkflow())
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflow_ListWorkflows(t *testing.T) {
	service := newWorkflowService(t)

	draft, err := service.Create(t.Context(), linearWorkflow())
	require.NoError(t, err)

	active := linearWorkflow()
	active.Status = models.WorkflowStatusActive
	_, err = service.Create(t.Context(), active)
	require.NoError(t, err)

	all, err := service.ListWorkflows(t.Context(), ListWorkflowsRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	drafts, err := service.ListWorkflows(t.Context(), ListWorkflowsRequest{Status: models.WorkflowStatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, draft.ID, drafts[0].ID)

	_, err = service.ListWorkflows(t.Context(), ListWorkflowsRequest{Status: "deleted"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestWorkflow_Delete(t *testing.T) {
	service := newWorkflowService(t)

	created, err := service.Create(t.Context(), linearWorkflow())
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	_, err = service.FetchByID(t.Context(), created.ID)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	assert.ErrorIs(t, service.Delete(t.Context(), created.ID), ErrWorkflowNotFound)
}

func TestWorkflow_ExportImport(t *testing.T) {
	service := newWorkflowService(t)

	created, err := service.Create(t.Context(), linearWorkflow())
	require.NoError(t, err)

	exported, err := service.Export(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CurrentFormatVersion, exported.FormatVersion)
	assert.Equal(t, 2, exported.NodeCount)
	assert.Equal(t, models.ComplexitySimple, exported.Complexity)

	document := map[string]any{
		"name": "Imported",
		"nodes": []any{
			map[string]any{"id": "t", "type": "trigger", "position": map[string]any{"x": 0.0, "y": 0.0}, "data": map[string]any{}},
			map[string]any{"id": "d", "type": "delay", "position": map[string]any{"x": 1.0, "y": 0.0}, "data": map[string]any{"delayMs": 10.0}},
		},
		"edges": []any{
			map[string]any{"id": "e", "source": "t", "target": "d"},
		},
	}

	imported, result, err := service.Import(t.Context(), document)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "Imported", imported.Name)
	assert.Equal(t, models.WorkflowStatusDraft, imported.Status)
	assert.Len(t, imported.Nodes, 2)
}

func TestWorkflow_ImportUnknownVersion(t *testing.T) {
	service := newWorkflowService(t)

	_, result, err := service.Import(t.Context(), map[string]any{
		"formatVersion": "3.0",
		"name":          "Future",
		"nodes":         []any{},
		"edges":         []any{},
	})

	require.ErrorIs(t, err, ErrInvalidWorkflow)
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, validation.CompatibilityNone, result.Compatibility)
}

func TestWorkflow_ImportRejectsInvalidNodeData(t *testing.T) {
	graph, err := validation.NewSchemaValidator(map[models.NodeType]map[string]any{
		models.NodeTypeTrigger: {"type": "object"},
		models.NodeTypeDelay: {
			"type":       "object",
			"properties": map[string]any{"delayMs": map[string]any{"type": "integer"}},
		},
	})
	require.NoError(t, err)

	service := NewWorkflow(file.NewPersistence(t.TempDir()), graph)

	_, result, err := service.Import(t.Context(), map[string]any{
		"name": "Imported",
		"nodes": []any{
			map[string]any{"id": "t", "type": "trigger", "position": map[string]any{"x": 0.0, "y": 0.0}, "data": map[string]any{}},
			map[string]any{"id": "d", "type": "delay", "position": map[string]any{"x": 1.0, "y": 0.0}, "data": map[string]any{"delayMs": "soon"}},
		},
		"edges": []any{
			map[string]any{"id": "e", "source": "t", "target": "d"},
		},
	})

	require.ErrorIs(t, err, ErrInvalidWorkflow)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "node d data is invalid")
}

func TestWorkflow_HealthCheck(t *testing.T) {
	message, healthy := newWorkflowService(t).HealthCheck(t.Context())
	assert.True(t, healthy)
	assert.Equal(t, "Persistence layer is healthy", message)

	message, healthy = (&Workflow{}).HealthCheck(t.Context())
	assert.False(t, healthy)
	assert.Equal(t, "Persistence layer not initialized", message)
}
