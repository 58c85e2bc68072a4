package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowgraph/pkg/protocol"
)

var ErrNoTaskRunner = errors.New("no task runner configured")

// Run starts request on runner, waits for it to finish and converts a failed
// execution into an error carrying the runner message.
func Run(
	ctx context.Context,
	runner protocol.TaskRunner,
	request protocol.TaskRequest,
	opts protocol.WaitOptions,
) (map[string]any, error) {
	if runner == nil {
		return nil, ErrNoTaskRunner
	}

	executionID, err := runner.StartExecution(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to start task %s: %w", request.TaskRef, err)
	}

	execution, err := Await(ctx, runner, executionID, opts)
	if err != nil {
		return nil, err
	}

	if execution.Status != protocol.TaskStatusCompleted {
		message := execution.Error
		if message == "" {
			message = fmt.Sprintf("task execution %s ended with status %s", executionID, execution.Status)
		}

		return nil, errors.New(message)
	}

	return map[string]any{
		"executionId": executionID,
		"status":      string(execution.Status),
		"output":      execution.Output,
	}, nil
}
