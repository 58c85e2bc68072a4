package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   "Sample " + id,
		Status: models.WorkflowStatusActive,
		Nodes: []*models.Node{
			{ID: "t", Type: models.NodeTypeTrigger, Data: &models.TriggerData{TriggerType: "manual"}},
			{ID: "d", Type: models.NodeTypeDelay, Data: &models.DelayData{DelayMs: 10}},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "t", Target: "d"}},
	}
}

func TestNewPersistence(t *testing.T) {
	p := NewPersistence("/tmp/test")
	fp := p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	p = NewPersistence("file:///tmp/test")
	fp = p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
	assert.NoError(t, NewPersistence(t.TempDir()).Close(t.Context()))
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	testDir := t.TempDir()
	repo := NewPersistence(testDir).WorkflowRepository()

	workflow := sampleWorkflow("wf-1")
	require.NoError(t, repo.Save(t.Context(), workflow))

	assert.FileExists(t, filepath.Join(testDir, "workflows", "wf-1.json"))
	assert.False(t, workflow.CreatedAt.IsZero())
	assert.False(t, workflow.UpdatedAt.IsZero())

	fetched, err := repo.GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Sample wf-1", fetched.Name)
	require.Len(t, fetched.Nodes, 2)
	assert.Equal(t, &models.DelayData{DelayMs: 10}, fetched.Nodes[1].Data)
	assert.Equal(t, "d", fetched.Edges[0].Target)
}

func TestWorkflowRepository_SavePreservesCreatedAt(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	workflow := sampleWorkflow("wf-1")
	workflow.CreatedAt = created

	require.NoError(t, repo.Save(t.Context(), workflow))
	assert.Equal(t, created, workflow.CreatedAt)
	assert.True(t, workflow.UpdatedAt.After(created))
}

func TestWorkflowRepository_NotFound(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	_, err := repo.GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = repo.Delete(t.Context(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_RejectsUnsafeIDs(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	_, err := repo.GetByID(t.Context(), "../secrets")
	require.ErrorIs(t, err, persistence.ErrInvalidID)

	err = repo.Save(t.Context(), sampleWorkflow("a/b"))
	require.ErrorIs(t, err, persistence.ErrInvalidID)
}

func TestWorkflowRepository_GetAllAndDelete(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	all, err := repo.GetAll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)

	first := sampleWorkflow("wf-1")
	first.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Save(t.Context(), first))
	require.NoError(t, repo.Save(t.Context(), sampleWorkflow("wf-2")))

	all, err = repo.GetAll(t.Context())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "wf-2", all[0].ID)
	assert.Equal(t, "wf-1", all[1].ID)

	require.NoError(t, repo.Delete(t.Context(), "wf-1"))

	all, err = repo.GetAll(t.Context())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "wf-2", all[0].ID)
}

func TestExecutionRepository_Lifecycle(t *testing.T) {
	testDir := t.TempDir()
	repo := NewPersistence(testDir).ExecutionRepository()

	execution, err := repo.Create(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.NotEmpty(t, execution.ID)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
	assert.Nil(t, execution.CompletedAt)
	assert.FileExists(t, filepath.Join(testDir, "executions", execution.ID+".json"))

	updated, err := repo.Update(t.Context(), execution.ID, models.ExecutionUpdate{
		Status: models.ExecutionStatusSuccess,
		Data:   map[string]any{"node": "output"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSuccess, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	fetched, err := repo.GetByID(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSuccess, fetched.Status)
	assert.Equal(t, map[string]any{"node": "output"}, fetched.ExecutionData)

	_, err = repo.Update(t.Context(), execution.ID, models.ExecutionUpdate{Status: models.ExecutionStatusFailed})
	assert.True(t, persistence.IsExecutionFinished(err))

	_, err = repo.GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))

	_, err = repo.Update(t.Context(), "missing", models.ExecutionUpdate{Status: models.ExecutionStatusFailed})
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionRepository_ConcurrentUpdatesApplyOnce(t *testing.T) {
	repo := NewExecutionRepository(t.TempDir())

	execution, err := repo.Create(t.Context(), "wf-1")
	require.NoError(t, err)

	const writers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.Update(t.Context(), execution.ID, models.ExecutionUpdate{Status: models.ExecutionStatusCancelled})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestExecutionRepository_ListByWorkflow(t *testing.T) {
	repo := NewExecutionRepository(t.TempDir())

	empty, err := repo.ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++

		return base.Add(time.Duration(tick) * time.Minute)
	}

	older, err := repo.Create(t.Context(), "wf-1")
	require.NoError(t, err)
	_, err = repo.Create(t.Context(), "wf-2")
	require.NoError(t, err)
	newer, err := repo.Create(t.Context(), "wf-1")
	require.NoError(t, err)

	list, err := repo.ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestExecutionRepository_ListDuringUpdates(t *testing.T) {
	dir := t.TempDir()
	repo := NewExecutionRepository(dir)

	const count = 20

	ids := make([]string, 0, count)

	for range count {
		execution, err := repo.Create(t.Context(), "wf-1")
		require.NoError(t, err)

		ids = append(ids, execution.ID)
	}

	data := map[string]any{"payload": strings.Repeat("x", 64*1024)}

	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.Update(t.Context(), id, models.ExecutionUpdate{Status: models.ExecutionStatusSuccess, Data: data})
			assert.NoError(t, err)
		}()
	}

	listErrs := make(chan error, count)

	for range count {
		wg.Add(1)

		go func() {
			defer wg.Done()

			list, err := repo.ListByWorkflow(t.Context(), "wf-1")
			if err == nil && len(list) != count {
				err = fmt.Errorf("listed %d executions, want %d", len(list), count)
			}

			listErrs <- err
		}()
	}

	wg.Wait()
	close(listErrs)

	for err := range listErrs {
		assert.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "executions"))
	require.NoError(t, err)

	for _, entry := range entries {
		assert.True(t, strings.HasSuffix(entry.Name(), ".json"), "leftover file %s", entry.Name())
	}
}
