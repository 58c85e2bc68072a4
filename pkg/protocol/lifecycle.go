package protocol

import (
	"log/slog"
	"time"
)

// WaitOptions controls how task and agent nodes wait for external executions.
type WaitOptions struct {
	// PollInterval is the delay between status checks when the runner cannot signal completion
	PollInterval time.Duration

	// Timeout bounds the whole wait; zero waits until the context ends
	Timeout time.Duration
}

// Dependencies contains the collaborators node factories need.
type Dependencies struct {
	Logger   *slog.Logger
	Tasks    TaskRunner
	Notifier Notifier
	Subflows SubflowRunner
	Wait     WaitOptions
}
