// Package tasks provides the task execution collaborator used by task and agent nodes.
package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/google/uuid"
)

// AgentRefPrefix marks task references that name an agent.
const AgentRefPrefix = "agent:"

// DefaultRetention is how long finished executions stay readable.
const DefaultRetention = 15 * time.Minute

var (
	ErrExecutionNotFound  = errors.New("task execution not found")
	ErrEmptyCommand       = errors.New("task command is empty")
	ErrAgentNotConfigured = errors.New("agent not configured")
)

type execution struct {
	state      protocol.TaskExecution
	done       chan struct{}
	finishedAt time.Time
}

// LocalRunner runs task commands with sh -c on the local machine and keeps
// their state in memory.
type LocalRunner struct {
	logger *slog.Logger
	agents map[string]string
	shell  string

	retention time.Duration
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	executions map[string]*execution
}

// Option configures a LocalRunner.
type Option func(*LocalRunner)

// WithAgent maps an agent name to the command that runs it. The rendered prompt
// is written to the command stdin and exported as FLOWGRAPH_PROMPT.
func WithAgent(name, command string) Option {
	return func(r *LocalRunner) {
		r.agents[name] = command
	}
}

// WithShell overrides the shell used to run commands.
func WithShell(shell string) Option {
	return func(r *LocalRunner) {
		r.shell = shell
	}
}

// WithRetention sets how long finished executions are kept before eviction.
func WithRetention(retention time.Duration) Option {
	return func(r *LocalRunner) {
		r.retention = retention
	}
}

// NewLocalRunner creates a runner. Close stops every running command.
func NewLocalRunner(logger *slog.Logger, opts ...Option) *LocalRunner {
	ctx, cancel := context.WithCancel(context.Background())

	runner := &LocalRunner{
		logger:     logger.With("module", "local_task_runner"),
		agents:     map[string]string{},
		shell:      "sh",
		retention:  DefaultRetention,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		executions: map[string]*execution{},
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// StartExecution launches the command in the background and returns its execution id.
func (r *LocalRunner) StartExecution(_ context.Context, request protocol.TaskRequest) (string, error) {
	command := request.Command

	var stdin string

	if agent, ok := strings.CutPrefix(request.TaskRef, AgentRefPrefix); ok {
		agentCommand, configured := r.agents[agent]
		if !configured {
			return "", fmt.Errorf("%w: %s", ErrAgentNotConfigured, agent)
		}

		stdin = request.Command
		command = agentCommand
	}

	if strings.TrimSpace(command) == "" {
		return "", ErrEmptyCommand
	}

	if err := r.ctx.Err(); err != nil {
		return "", fmt.Errorf("task runner is closed: %w", err)
	}

	id := uuid.NewString()
	entry := &execution{
		state: protocol.TaskExecution{ID: id, Status: protocol.TaskStatusRunning},
		done:  make(chan struct{}),
	}

	r.mu.Lock()
	r.evictLocked()
	r.executions[id] = entry
	r.mu.Unlock()

	cmd := exec.CommandContext(r.ctx, r.shell, "-c", command)
	cmd.Dir = request.Cwd

	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
		cmd.Env = append(os.Environ(), "FLOWGRAPH_PROMPT="+stdin)
	}

	r.logger.Info("Starting task execution", "execution_id", id, "task_ref", request.TaskRef, "cwd", request.Cwd)

	r.wg.Add(1)

	go r.run(id, entry, cmd)

	return id, nil
}

func (r *LocalRunner) run(id string, entry *execution, cmd *exec.Cmd) {
	defer r.wg.Done()

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	started := time.Now()
	err := cmd.Run()

	r.mu.Lock()

	entry.state.Output = strings.TrimSpace(output.String())
	if err != nil {
		entry.state.Status = protocol.TaskStatusFailed
		entry.state.Error = err.Error()
	} else {
		entry.state.Status = protocol.TaskStatusCompleted
	}

	entry.finishedAt = r.now()
	close(entry.done)
	r.mu.Unlock()

	r.logger.Info("Task execution finished",
		"execution_id", id,
		"status", entry.state.Status,
		"duration", time.Since(started),
	)
}

// evictLocked drops executions that finished more than retention ago.
func (r *LocalRunner) evictLocked() {
	cutoff := r.now().Add(-r.retention)

	for id, entry := range r.executions {
		if !entry.finishedAt.IsZero() && entry.finishedAt.Before(cutoff) {
			delete(r.executions, id)
		}
	}
}

// GetExecution returns a copy of the execution state.
func (r *LocalRunner) GetExecution(_ context.Context, executionID string) (*protocol.TaskExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.executions[executionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}

	state := entry.state

	return &state, nil
}

// Done returns a channel closed when the execution finishes.
// Unknown ids return a closed channel so waiters fall through to GetExecution.
func (r *LocalRunner) Done(executionID string) <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.executions[executionID]
	if !ok {
		closed := make(chan struct{})
		close(closed)

		return closed
	}

	return entry.done
}

// Close kills running commands and waits for them to exit.
func (r *LocalRunner) Close() error {
	r.cancel()
	r.wg.Wait()

	return nil
}
