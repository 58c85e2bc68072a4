package workflow

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowgraph/pkg/mocks"
	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/nodes/delay"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/persistence/file"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/dukex/flowgraph/pkg/registry"
	"github.com/dukex/flowgraph/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store    persistence.Persistence
	registry *registry.Registry
	executor *Executor
	tasks    *mocks.MockTaskRunner
	notifier *mocks.MockNotifier
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	h := &harness{
		store:    file.NewPersistence(t.TempDir()),
		registry: registry.NewRegistry(logger),
		tasks:    &mocks.MockTaskRunner{},
		notifier: &mocks.MockNotifier{},
	}

	h.executor = NewExecutor(h.store, h.registry, logger, opts...)
	h.registry.RegisterDefaultNodes(protocol.Dependencies{
		Logger:   logger,
		Tasks:    h.tasks,
		Notifier: h.notifier,
		Subflows: h.executor,
		Wait:     protocol.WaitOptions{PollInterval: time.Millisecond, Timeout: time.Second},
	})

	return h
}

func (h *harness) save(t *testing.T, workflows ...*models.Workflow) {
	t.Helper()

	for _, workflow := range workflows {
		require.NoError(t, h.store.WorkflowRepository().Save(t.Context(), workflow))
	}
}

func (h *harness) taskSucceeds(templateID, runID string, output string) {
	h.tasks.On("StartExecution", mock.Anything, mock.MatchedBy(func(r protocol.TaskRequest) bool {
		return r.TaskRef == templateID
	})).Return(runID, nil)
	h.tasks.On("GetExecution", mock.Anything, runID).Return(&protocol.TaskExecution{
		ID:     runID,
		Status: protocol.TaskStatusCompleted,
		Output: output,
	}, nil)
}

func (h *harness) taskFails(templateID, runID, message string) {
	h.tasks.On("StartExecution", mock.Anything, mock.MatchedBy(func(r protocol.TaskRequest) bool {
		return r.TaskRef == templateID
	})).Return(runID, nil)
	h.tasks.On("GetExecution", mock.Anything, runID).Return(&protocol.TaskExecution{
		ID:     runID,
		Status: protocol.TaskStatusFailed,
		Error:  message,
	}, nil)
}

func TestExecutor_LinearSuccess(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.TaskNode("build", "tpl-build"),
			testutil.NotificationNode("notify", models.NotificationChannelSlack, "built {{.input.output}}"),
		),
		testutil.WithChain("start", "build", "notify"),
	)
	h.save(t, workflow)

	h.taskSucceeds("tpl-build", "run-1", "ok")
	h.notifier.On("Send", mock.Anything, protocol.Notification{
		Channel: "slack",
		Title:   "notify",
		Message: "built ok",
	}).Return(nil)

	result, err := h.executor.Execute(t.Context(), workflow.ID, map[string]any{"ref": "main"})
	require.NoError(t, err)

	execution := result.Execution
	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	assert.Empty(t, execution.Error)
	require.NotNil(t, execution.CompletedAt)

	assert.Len(t, execution.ExecutionData, 3)
	assert.Equal(t, map[string]any{"ref": "main"}, execution.ExecutionData[models.TriggerDataKey])
	assert.Contains(t, execution.ExecutionData, "build")
	assert.Contains(t, execution.ExecutionData, "notify")
	assert.NotContains(t, execution.ExecutionData, "start")

	assert.Len(t, result.Outcomes, 3)
	assert.True(t, result.Outcomes["start"].Success)

	stored, err := h.store.ExecutionRepository().GetByID(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSuccess, stored.Status)

	h.tasks.AssertExpectations(t)
	h.notifier.AssertExpectations(t)
	assert.Empty(t, h.executor.Running())
}

func TestExecutor_ConditionalBranchPrunesUntakenPath(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.ConditionalNode("check", "status", "ok"),
			testutil.MergeNode("A"),
			testutil.MergeNode("B"),
			testutil.MergeNode("afterB"),
		),
		testutil.WithEdge("start", "check"),
		testutil.WithEdge("check", "A", "true"),
		testutil.WithEdge("check", "B", "false"),
		testutil.WithEdge("B", "afterB"),
	)
	h.save(t, workflow)

	result, err := h.executor.Execute(t.Context(), workflow.ID, map[string]any{"status": "ok"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, result.Execution.Status)
	assert.Contains(t, result.Outcomes, "A")
	assert.NotContains(t, result.Outcomes, "B")
	assert.NotContains(t, result.Outcomes, "afterB")
	assert.Equal(t, []string{"B", "afterB"}, result.Skipped)

	data := result.Execution.ExecutionData
	assert.Equal(t, map[string]any{"result": true, "branch": "true"}, data["check"])
	assert.Equal(t, map[string]any{"result": true, "branch": "true"}, data["A"])
	assert.NotContains(t, data, "B")
}

func TestExecutor_FalseBranch(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.ConditionalNode("check", "status", "ok"),
			testutil.MergeNode("A"),
			testutil.MergeNode("B"),
		),
		testutil.WithEdge("start", "check"),
		testutil.WithEdge("check", "A", "true"),
		testutil.WithEdge("check", "B", "false"),
	)
	h.save(t, workflow)

	result, err := h.executor.Execute(t.Context(), workflow.ID, map[string]any{"status": "down"})
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, result.Skipped)
	assert.Contains(t, result.Outcomes, "B")
}

func TestExecutor_NodeFailureHaltsRun(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.TaskNode("task1", "tpl-1"),
			testutil.TaskNode("task2", "tpl-2"),
		),
		testutil.WithChain("start", "task1", "task2"),
	)
	h.save(t, workflow)

	h.taskFails("tpl-1", "run-1", "exit status 2: compilation failed")

	result, err := h.executor.Execute(t.Context(), workflow.ID, nil)
	require.NoError(t, err)

	execution := result.Execution
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, "exit status 2: compilation failed", execution.Error)
	assert.NotContains(t, execution.ExecutionData, "task2")
	assert.NotContains(t, result.Outcomes, "task2")
	assert.False(t, result.Outcomes["task1"].Success)

	h.tasks.AssertNotCalled(t, "StartExecution", mock.Anything, mock.MatchedBy(func(r protocol.TaskRequest) bool {
		return r.TaskRef == "tpl-2"
	}))
}

func TestExecutor_FailureKeepsEarlierOutputs(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.MergeNode("first"),
			testutil.TaskNode("broken", "tpl-broken"),
		),
		testutil.WithChain("start", "first", "broken"),
	)
	h.save(t, workflow)

	h.tasks.On("StartExecution", mock.Anything, mock.Anything).Return("", assert.AnError)

	result, err := h.executor.Execute(t.Context(), workflow.ID, "payload")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, result.Execution.Status)
	assert.Contains(t, result.Execution.Error, "failed to start task tpl-broken")
	assert.Equal(t, "payload", result.Execution.ExecutionData["first"])
}

func TestExecutor_Cancellation(t *testing.T) {
	h := newHarness(t)

	started := make(chan time.Duration, 1)
	release := make(chan struct{})

	h.registry.RegisterNode(delay.NewDelayNodeFactory(delay.WithSleep(func(_ context.Context, d time.Duration) error {
		started <- d
		<-release

		return nil
	})))

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.DelayNode("wait", 5000),
			testutil.NotificationNode("notify", models.NotificationChannelDiscord, "done"),
		),
		testutil.WithChain("start", "wait", "notify"),
	)
	h.save(t, workflow)

	execution, err := h.executor.Start(t.Context(), workflow.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)

	select {
	case requested := <-started:
		assert.Equal(t, 5*time.Second, requested)
	case <-time.After(5 * time.Second):
		t.Fatal("delay node did not start")
	}

	assert.Equal(t, []string{execution.ID}, h.executor.Running())
	assert.True(t, h.executor.Cancel(execution.ID))
	assert.False(t, h.executor.Cancel(execution.ID))

	close(release)
	h.executor.Wait()

	stored, err := h.store.ExecutionRepository().GetByID(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, stored.Status)
	assert.Contains(t, stored.ExecutionData, "wait")
	assert.NotContains(t, stored.ExecutionData, "notify")

	h.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.False(t, h.executor.Cancel(execution.ID))
	assert.False(t, h.executor.Cancel("unknown"))
}

func TestExecutor_CyclicGraphFailsWithoutRunningNodes(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.MergeNode("a"),
			testutil.MergeNode("b"),
		),
		testutil.WithEdge("a", "b"),
		testutil.WithEdge("b", "a"),
	)
	h.save(t, workflow)

	result, err := h.executor.Execute(t.Context(), workflow.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, result.Execution.Status)
	assert.Contains(t, result.Execution.Error, "cycle")
	assert.Empty(t, result.Outcomes)
}

func TestExecutor_MergeJoinsBranches(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.MergeNode("left"),
			testutil.MergeNode("right"),
			testutil.MergeNode("join"),
		),
		testutil.WithEdge("start", "left"),
		testutil.WithEdge("start", "right"),
		testutil.WithEdge("left", "join"),
		testutil.WithEdge("right", "join"),
	)
	h.save(t, workflow)

	result, err := h.executor.Execute(t.Context(), workflow.ID, "x")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, result.Execution.Status)
	assert.Equal(t, map[string]any{"left": "x", "right": "x"}, result.Execution.ExecutionData["join"])
}

func TestExecutor_UnknownNodeType(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			&models.Node{ID: "hook", Type: "webhook", Data: &models.UnknownData{Type: "webhook"}},
		),
		testutil.WithEdge("start", "hook"),
	)
	h.save(t, workflow)

	result, err := h.executor.Execute(t.Context(), workflow.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, result.Execution.Status)
	assert.Contains(t, result.Execution.Error, "webhook")
}

func TestExecutor_WorkflowNotFound(t *testing.T) {
	h := newHarness(t)

	result, err := h.executor.Execute(t.Context(), "missing", nil)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.Nil(t, result)

	_, err = h.executor.Start(t.Context(), "missing", nil)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestExecutor_CancelDuringSubworkflow(t *testing.T) {
	h := newHarness(t)

	started := make(chan struct{}, 1)
	release := make(chan struct{})

	h.registry.RegisterNode(delay.NewDelayNodeFactory(delay.WithSleep(func(_ context.Context, _ time.Duration) error {
		started <- struct{}{}
		<-release

		return nil
	})))

	child := testutil.CreateTestWorkflow(
		testutil.WithID("child"),
		testutil.WithNodes(testutil.TriggerNode("start"), testutil.DelayNode("wait", 5000), testutil.MergeNode("done")),
		testutil.WithChain("start", "wait", "done"),
	)
	parent := testutil.CreateTestWorkflow(
		testutil.WithID("parent"),
		testutil.WithNodes(testutil.TriggerNode("start"), testutil.SubworkflowNode("call", "child"), testutil.MergeNode("after")),
		testutil.WithChain("start", "call", "after"),
	)
	h.save(t, child, parent)

	execution, err := h.executor.Start(t.Context(), "parent", nil)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("child delay did not start")
	}

	assert.Len(t, h.executor.Running(), 2)
	assert.True(t, h.executor.Cancel(execution.ID))

	close(release)
	h.executor.Wait()

	stored, err := h.store.ExecutionRepository().GetByID(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, stored.Status)
	assert.Empty(t, stored.Error)
	assert.NotContains(t, stored.ExecutionData, "after")

	children, err := h.store.ExecutionRepository().ListByWorkflow(t.Context(), "child")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, models.ExecutionStatusCancelled, children[0].Status)
	assert.NotContains(t, children[0].ExecutionData, "done")
}

func TestExecutor_ContextDoneEndsRunCancelled(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(testutil.TriggerNode("start"), testutil.DelayNode("wait", 5000), testutil.MergeNode("after")),
		testutil.WithChain("start", "wait", "after"),
	)
	h.save(t, workflow)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	result, err := h.executor.Execute(ctx, workflow.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCancelled, result.Execution.Status)
	assert.Empty(t, result.Execution.Error)
	assert.NotContains(t, result.Execution.ExecutionData, "after")

	stored, err := h.store.ExecutionRepository().GetByID(t.Context(), result.Execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, stored.Status)
}

func TestExecutor_CancelAfterLastLevel(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(testutil.TriggerNode("start")),
	)
	h.save(t, workflow)

	ctx, r, err := h.executor.prepare(t.Context(), workflow.ID, nil)
	require.NoError(t, err)

	assert.True(t, h.executor.Cancel(r.execution.ID))

	execution, err := h.executor.finish(ctx, r, models.ExecutionUpdate{Status: models.ExecutionStatusSuccess})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, execution.Status)
	assert.False(t, h.executor.Cancel(r.execution.ID))
}

func TestExecutor_Subworkflows(t *testing.T) {
	h := newHarness(t)

	child := testutil.CreateTestWorkflow(
		testutil.WithID("child"),
		testutil.WithNodes(testutil.TriggerNode("start"), testutil.MergeNode("echo")),
		testutil.WithChain("start", "echo"),
	)
	parent := testutil.CreateTestWorkflow(
		testutil.WithID("parent"),
		testutil.WithNodes(testutil.TriggerNode("start"), testutil.SubworkflowNode("call", "child")),
		testutil.WithChain("start", "call"),
	)
	self := testutil.CreateTestWorkflow(
		testutil.WithID("self"),
		testutil.WithNodes(testutil.TriggerNode("start"), testutil.SubworkflowNode("again", "self")),
		testutil.WithChain("start", "again"),
	)
	h.save(t, child, parent, self)

	t.Run("nested run succeeds", func(t *testing.T) {
		result, err := h.executor.Execute(t.Context(), "parent", "hello")
		require.NoError(t, err)

		assert.Equal(t, models.ExecutionStatusSuccess, result.Execution.Status)

		call, ok := result.Execution.ExecutionData["call"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "success", call["status"])
		assert.Equal(t, "child", call["workflowId"])

		childData, ok := call["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "hello", childData["echo"])
	})

	t.Run("recursion is rejected", func(t *testing.T) {
		result, err := h.executor.Execute(t.Context(), "self", nil)
		require.NoError(t, err)

		assert.Equal(t, models.ExecutionStatusFailed, result.Execution.Status)
		assert.Contains(t, result.Execution.Error, ErrRecursiveSubflow.Error())
	})
}

func TestExecutor_SubworkflowDepthLimit(t *testing.T) {
	h := newHarness(t)

	const chainLength = MaxSubflowDepth + 2

	for i := range chainLength {
		id := "level-" + string(rune('a'+i))
		nodes := testutil.WithNodes(testutil.TriggerNode("start"))

		workflow := testutil.CreateTestWorkflow(testutil.WithID(id), nodes)
		if i < chainLength-1 {
			next := "level-" + string(rune('a'+i+1))
			testutil.WithNodes(testutil.SubworkflowNode("call", next))(workflow)
			testutil.WithEdge("start", "call")(workflow)
		}

		h.save(t, workflow)
	}

	result, err := h.executor.Execute(t.Context(), "level-a", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, result.Execution.Status)
	assert.Contains(t, result.Execution.Error, ErrSubflowDepthExceeded.Error())
}

func TestExecutor_ObserversSeeEveryTransition(t *testing.T) {
	observer := &mocks.MockObserver{}
	observer.On("ExecutionStarted", mock.Anything, mock.Anything).Return()
	observer.On("NodeFinished", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	observer.On("ExecutionFinished", mock.Anything, mock.MatchedBy(func(e *models.Execution) bool {
		return e.Status == models.ExecutionStatusSuccess
	})).Return()

	h := newHarness(t, WithObservers(observer), WithMaxParallelNodes(1))

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(testutil.TriggerNode("start"), testutil.MergeNode("a"), testutil.MergeNode("b")),
		testutil.WithEdge("start", "a"),
		testutil.WithEdge("start", "b"),
	)
	h.save(t, workflow)

	_, err := h.executor.Execute(t.Context(), workflow.ID, nil)
	require.NoError(t, err)

	observer.AssertNumberOfCalls(t, "ExecutionStarted", 1)
	observer.AssertNumberOfCalls(t, "NodeFinished", 3)
	observer.AssertNumberOfCalls(t, "ExecutionFinished", 1)
}

func TestExecutor_ConcurrentRunsAreIndependent(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(testutil.TriggerNode("start"), testutil.MergeNode("echo")),
		testutil.WithChain("start", "echo"),
	)
	h.save(t, workflow)

	const runs = 10

	var wg sync.WaitGroup

	results := make([]*models.ExecutionResult, runs)

	for i := range runs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			result, err := h.executor.Execute(context.Background(), workflow.ID, i)
			assert.NoError(t, err)

			results[i] = result
		}()
	}

	wg.Wait()

	for i, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, i, result.Execution.ExecutionData["echo"])
	}

	executions, err := h.store.ExecutionRepository().ListByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Len(t, executions, runs)
}
