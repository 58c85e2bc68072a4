package tasks

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T, opts ...Option) *LocalRunner {
	t.Helper()

	runner := NewLocalRunner(slog.Default(), opts...)
	t.Cleanup(func() { _ = runner.Close() })

	return runner
}

func TestLocalRunner_CompletedExecution(t *testing.T) {
	t.Parallel()

	runner := newRunner(t)
	dir := t.TempDir()

	id, err := runner.StartExecution(context.Background(), protocol.TaskRequest{
		TaskRef: "tpl-1",
		Command: "echo hello && pwd",
		Cwd:     dir,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	execution, err := Await(context.Background(), runner, id, protocol.WaitOptions{Timeout: 10 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, protocol.TaskStatusCompleted, execution.Status)
	assert.Contains(t, execution.Output, "hello")

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, execution.Output, filepath.Base(resolved))
	assert.Empty(t, execution.Error)
}

func TestLocalRunner_FailedExecution(t *testing.T) {
	t.Parallel()

	runner := newRunner(t)

	id, err := runner.StartExecution(context.Background(), protocol.TaskRequest{TaskRef: "tpl", Command: "echo boom >&2; exit 3"})
	require.NoError(t, err)

	<-runner.Done(id)

	execution, err := runner.GetExecution(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, protocol.TaskStatusFailed, execution.Status)
	assert.Equal(t, "boom", execution.Output)
	assert.Contains(t, execution.Error, "exit status 3")
}

func TestLocalRunner_Agent(t *testing.T) {
	t.Parallel()

	runner := newRunner(t, WithAgent("echo-agent", `cat; echo " via $FLOWGRAPH_PROMPT"`))

	id, err := runner.StartExecution(context.Background(), protocol.TaskRequest{
		TaskRef: AgentRefPrefix + "echo-agent",
		Command: "summarize",
	})
	require.NoError(t, err)

	execution, err := Await(context.Background(), runner, id, protocol.WaitOptions{Timeout: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, protocol.TaskStatusCompleted, execution.Status)
	assert.Equal(t, "summarize via summarize", execution.Output)

	_, err = runner.StartExecution(context.Background(), protocol.TaskRequest{TaskRef: AgentRefPrefix + "ghost", Command: "x"})
	require.ErrorIs(t, err, ErrAgentNotConfigured)
}

func TestLocalRunner_Errors(t *testing.T) {
	t.Parallel()

	runner := newRunner(t)

	_, err := runner.StartExecution(context.Background(), protocol.TaskRequest{TaskRef: "tpl", Command: "   "})
	require.ErrorIs(t, err, ErrEmptyCommand)

	_, err = runner.GetExecution(context.Background(), "missing")
	require.ErrorIs(t, err, ErrExecutionNotFound)

	select {
	case <-runner.Done("missing"):
	default:
		t.Fatal("done channel for unknown execution should be closed")
	}
}

func TestLocalRunner_CloseStopsCommands(t *testing.T) {
	t.Parallel()

	runner := NewLocalRunner(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	id, err := runner.StartExecution(context.Background(), protocol.TaskRequest{TaskRef: "tpl", Command: "sleep 30"})
	require.NoError(t, err)

	require.NoError(t, runner.Close())

	execution, err := runner.GetExecution(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, protocol.TaskStatusFailed, execution.Status)

	_, err = runner.StartExecution(context.Background(), protocol.TaskRequest{TaskRef: "tpl", Command: "true"})
	require.Error(t, err)
}

func TestLocalRunner_EvictsFinishedExecutions(t *testing.T) {
	t.Parallel()

	runner := newRunner(t, WithRetention(time.Minute))

	var (
		mu  sync.Mutex
		now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	)

	runner.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		return now
	}

	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()

		now = now.Add(d)
	}

	start := func(ref string) string {
		id, err := runner.StartExecution(context.Background(), protocol.TaskRequest{TaskRef: ref, Command: "true"})
		require.NoError(t, err)

		_, err = Await(context.Background(), runner, id, protocol.WaitOptions{Timeout: 10 * time.Second})
		require.NoError(t, err)

		return id
	}

	first := start("a")

	advance(30 * time.Second)

	second := start("b")

	_, err := runner.GetExecution(context.Background(), first)
	require.NoError(t, err, "executions within retention are kept")

	advance(45 * time.Second)
	start("c")

	_, err = runner.GetExecution(context.Background(), first)
	require.ErrorIs(t, err, ErrExecutionNotFound)

	_, err = runner.GetExecution(context.Background(), second)
	require.NoError(t, err)
}
