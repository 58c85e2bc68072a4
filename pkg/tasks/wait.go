package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowgraph/pkg/protocol"
)

// DefaultPollInterval is used when WaitOptions.PollInterval is not set.
const DefaultPollInterval = time.Second

// ErrWaitTimeout is returned when a task does not finish within WaitOptions.Timeout.
var ErrWaitTimeout = errors.New("timed out waiting for task execution")

// Await blocks until the execution leaves the running state and returns its final state.
// Runners implementing protocol.TaskWaiter are awaited on their completion channel,
// others are polled every PollInterval.
func Await(
	ctx context.Context,
	runner protocol.TaskRunner,
	executionID string,
	opts protocol.WaitOptions,
) (*protocol.TaskExecution, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var done <-chan struct{}
	if waiter, ok := runner.(protocol.TaskWaiter); ok {
		done = waiter.Done(executionID)
	}

	for {
		execution, err := runner.GetExecution(ctx, executionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get task execution %s: %w", executionID, err)
		}

		if execution.Status != protocol.TaskStatusRunning {
			return execution, nil
		}

		if done != nil {
			select {
			case <-done:
				// a closed channel is read once, later checks poll
				done = nil

				continue
			case <-ctx.Done():
				return nil, waitError(ctx, executionID)
			}
		}

		timer := time.NewTimer(interval)

		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()

			return nil, waitError(ctx, executionID)
		}
	}
}

func waitError(ctx context.Context, executionID string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w %s", ErrWaitTimeout, executionID)
	}

	return fmt.Errorf("stopped waiting for task execution %s: %w", executionID, ctx.Err())
}
