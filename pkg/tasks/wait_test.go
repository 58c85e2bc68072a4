package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollingRunner reports running until calls reaches finishAfter.
type pollingRunner struct {
	mu          sync.Mutex
	calls       int
	finishAfter int
	final       protocol.TaskExecution
	err         error
}

func (r *pollingRunner) StartExecution(context.Context, protocol.TaskRequest) (string, error) {
	return "exec-1", nil
}

func (r *pollingRunner) GetExecution(_ context.Context, id string) (*protocol.TaskExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	r.calls++
	if r.finishAfter > 0 && r.calls >= r.finishAfter {
		final := r.final
		final.ID = id

		return &final, nil
	}

	return &protocol.TaskExecution{ID: id, Status: protocol.TaskStatusRunning}, nil
}

func TestAwait_Polling(t *testing.T) {
	t.Parallel()

	runner := &pollingRunner{
		finishAfter: 3,
		final:       protocol.TaskExecution{Status: protocol.TaskStatusFailed, Error: "disk full"},
	}

	execution, err := Await(context.Background(), runner, "exec-1", protocol.WaitOptions{PollInterval: time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, protocol.TaskStatusFailed, execution.Status)
	assert.Equal(t, "disk full", execution.Error)
	assert.Equal(t, 3, runner.calls)
}

func TestAwait_Timeout(t *testing.T) {
	t.Parallel()

	runner := &pollingRunner{}

	_, err := Await(context.Background(), runner, "exec-1", protocol.WaitOptions{
		PollInterval: time.Millisecond,
		Timeout:      20 * time.Millisecond,
	})
	require.ErrorIs(t, err, ErrWaitTimeout)
}

func TestAwait_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Await(ctx, &pollingRunner{}, "exec-1", protocol.WaitOptions{PollInterval: time.Hour})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAwait_RunnerError(t *testing.T) {
	t.Parallel()

	runner := &pollingRunner{err: errors.New("connection refused")}

	_, err := Await(context.Background(), runner, "exec-1", protocol.WaitOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
