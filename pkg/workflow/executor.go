package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/nodes/conditional"
	"github.com/dukex/flowgraph/pkg/otelhelper"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrWorkflowNotFound is returned when the workflow to execute does not exist.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Executor drives workflow runs. It is safe for concurrent use; distinct runs
// share nothing but the persistence layer.
type Executor struct {
	workflows   persistence.WorkflowRepository
	executions  persistence.ExecutionRepository
	nodes       *NodeExecutor
	observers   protocol.Observers
	logger      *slog.Logger
	tracer      trace.Tracer
	maxParallel int

	mu      sync.Mutex
	running map[string]*run
	wg      sync.WaitGroup
}

// Option configures an Executor.
type Option func(*Executor)

// WithObservers registers observers of execution lifecycle transitions.
func WithObservers(observers ...protocol.Observer) Option {
	return func(e *Executor) {
		e.observers = append(e.observers, observers...)
	}
}

// WithTracer sets the tracer used for execution and node spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// WithMaxParallelNodes bounds how many nodes of one level run at once. Zero means unbounded.
func WithMaxParallelNodes(n int) Option {
	return func(e *Executor) {
		e.maxParallel = n
	}
}

// NewExecutor creates an executor that loads workflows and records executions through store.
func NewExecutor(store persistence.Persistence, creator NodeCreator, logger *slog.Logger, opts ...Option) *Executor {
	executor := &Executor{
		workflows:  store.WorkflowRepository(),
		executions: store.ExecutionRepository(),
		logger:     logger.With("module", "workflow_executor"),
		tracer:     otelhelper.NoopTracer(),
		running:    make(map[string]*run),
	}

	for _, opt := range opts {
		opt(executor)
	}

	executor.nodes = NewNodeExecutor(creator, logger, executor.tracer)

	return executor
}

// run is the state of one in-flight execution.
type run struct {
	execution *models.Execution
	workflow  *models.Workflow
	trigger   any
	parent    *run
	cancelled atomic.Bool
	finalize  sync.Once
}

// isCancelled reports whether this run or any enclosing run was cancelled.
func (r *run) isCancelled() bool {
	for current := r; current != nil; current = current.parent {
		if current.cancelled.Load() {
			return true
		}
	}

	return false
}

// Execute runs a stored workflow to completion and returns its result.
// A run that fails or is cancelled is reported through the result, not the error;
// the error is reserved for a missing workflow or a persistence failure.
func (e *Executor) Execute(ctx context.Context, workflowID string, trigger any) (*models.ExecutionResult, error) {
	ctx, r, err := e.prepare(ctx, workflowID, trigger)
	if err != nil {
		return nil, err
	}

	return e.drive(ctx, r)
}

// Start creates the execution record and runs the workflow in the background.
// The returned execution is the running record.
func (e *Executor) Start(ctx context.Context, workflowID string, trigger any) (*models.Execution, error) {
	runCtx, r, err := e.prepare(context.WithoutCancel(ctx), workflowID, trigger)
	if err != nil {
		return nil, err
	}

	started := *r.execution

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		if _, err := e.drive(runCtx, r); err != nil {
			e.logger.ErrorContext(runCtx, "Background execution failed",
				"workflow_id", workflowID,
				"execution_id", started.ID,
				"error", err,
			)
		}
	}()

	return &started, nil
}

// RunSubflow runs workflowID nested in the execution carried by ctx.
func (e *Executor) RunSubflow(ctx context.Context, workflowID string, trigger any) (*models.ExecutionResult, error) {
	if err := checkSubflow(ctx, workflowID); err != nil {
		return nil, err
	}

	return e.Execute(ctx, workflowID, trigger)
}

// Cancel requests cooperative cancellation of a running execution. It takes
// effect at the next level boundary. It returns false when the execution is
// unknown or already finished.
func (e *Executor) Cancel(executionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.running[executionID]
	if !ok {
		return false
	}

	return r.cancelled.CompareAndSwap(false, true)
}

// Running returns the ids of the executions in flight.
func (e *Executor) Running() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := slices.Collect(maps.Keys(e.running))
	slices.Sort(ids)

	return ids
}

// Wait blocks until every execution started with Start has finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func (e *Executor) prepare(ctx context.Context, workflowID string, trigger any) (context.Context, *run, error) {
	workflow, err := e.workflows.GetByID(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
		}

		return nil, nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	if workflow == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}

	execution, err := e.executions.Create(ctx, workflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create execution for workflow %s: %w", workflowID, err)
	}

	r := &run{
		execution: execution,
		workflow:  workflow,
		trigger:   trigger,
		parent:    parentRun(ctx),
	}

	e.mu.Lock()
	e.running[execution.ID] = r
	e.mu.Unlock()

	ctx = withRun(withCallChain(ctx, workflowID), r)

	return ctx, r, nil
}

func (e *Executor) drive(ctx context.Context, r *run) (*models.ExecutionResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, r.workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, r.workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, r.execution.ID),
		attribute.Int(otelhelper.ExecutionDepth, len(callChain(ctx))-1),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", r.workflow.ID, "execution_id", r.execution.ID)
	logger.InfoContext(ctx, "Starting workflow execution")

	e.observers.ExecutionStarted(ctx, r.execution)

	state := e.runLevels(ctx, logger, r)

	execution, err := e.finish(ctx, r, state.update)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if execution.Status == models.ExecutionStatusFailed {
		otelhelper.SetError(span, errors.New(execution.Error))
	} else {
		otelhelper.SetStatus(span, string(execution.Status))
	}

	logger.InfoContext(ctx, "Workflow execution finished", "status", execution.Status)

	return &models.ExecutionResult{
		Execution: execution,
		Outcomes:  state.outcomes,
		Skipped:   state.skipped,
	}, nil
}

// runState is owned by the orchestrating goroutine of one run.
type runState struct {
	data     map[string]any
	outcomes map[string]models.NodeOutcome
	skipped  []string
	update   models.ExecutionUpdate
}

func (e *Executor) runLevels(ctx context.Context, logger *slog.Logger, r *run) *runState {
	workflow := r.workflow

	state := &runState{
		data:     map[string]any{models.TriggerDataKey: r.trigger},
		outcomes: make(map[string]models.NodeOutcome),
	}

	levels, err := graph.ComputeLevels(workflow.Nodes, workflow.Edges)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to compute levels", "error", err)

		state.update = models.ExecutionUpdate{Status: models.ExecutionStatusFailed, Error: err.Error(), Data: state.data}

		return state
	}

	incoming := graph.IncomingEdges(workflow.Nodes, workflow.Edges)

	for index, level := range levels {
		if r.isCancelled() || ctx.Err() != nil {
			logger.InfoContext(ctx, "Workflow execution cancelled", "level", index)

			state.update = models.ExecutionUpdate{Status: models.ExecutionStatusCancelled, Data: state.data}

			return state
		}

		dispatch, inputs := e.resolveLevel(workflow, level, incoming, state, r.trigger)

		outcomes := e.dispatchLevel(ctx, r, dispatch, inputs, maps.Clone(state.data))

		var failure *models.NodeOutcome

		for i, node := range dispatch {
			outcome := outcomes[i]
			state.outcomes[node.ID] = outcome

			e.observers.NodeFinished(ctx, r.execution, node.ID, outcome)

			if !outcome.Success {
				if failure == nil {
					failure = &outcomes[i]
				}

				continue
			}

			if node.Type != models.NodeTypeTrigger {
				state.data[node.ID] = outcome.Output
			}
		}

		// A node interrupted by cancellation fails with the cancellation as its
		// error; the run still ends cancelled.
		if r.isCancelled() || ctx.Err() != nil {
			logger.InfoContext(ctx, "Workflow execution cancelled", "level", index)

			state.update = models.ExecutionUpdate{Status: models.ExecutionStatusCancelled, Data: state.data}

			return state
		}

		if failure != nil {
			logger.InfoContext(ctx, "Workflow execution failed", "level", index, "error", failure.Error)

			state.update = models.ExecutionUpdate{Status: models.ExecutionStatusFailed, Error: failure.Error, Data: state.data}

			return state
		}
	}

	state.update = models.ExecutionUpdate{Status: models.ExecutionStatusSuccess, Data: state.data}

	return state
}

// resolveLevel picks the nodes of level that have an active incoming edge (or no
// incoming edge at all) and resolves their inputs. The others are skipped.
func (e *Executor) resolveLevel(
	workflow *models.Workflow,
	level graph.Level,
	incoming map[string][]*models.Edge,
	state *runState,
	trigger any,
) ([]*models.Node, []any) {
	dispatch := make([]*models.Node, 0, len(level))
	inputs := make([]any, 0, len(level))

	for _, node := range level {
		edges := incoming[node.ID]
		if len(edges) == 0 {
			dispatch = append(dispatch, node)
			inputs = append(inputs, trigger)

			continue
		}

		sources := make(map[string]any)
		order := make([]string, 0, len(edges))

		for _, edge := range edges {
			if !e.edgeActive(workflow, edge, state) {
				continue
			}

			if _, seen := sources[edge.Source]; seen {
				continue
			}

			sources[edge.Source] = e.sourceValue(workflow, edge.Source, state)
			order = append(order, edge.Source)
		}

		switch len(order) {
		case 0:
			state.skipped = append(state.skipped, node.ID)
		case 1:
			dispatch = append(dispatch, node)
			inputs = append(inputs, sources[order[0]])
		default:
			dispatch = append(dispatch, node)
			inputs = append(inputs, sources)
		}
	}

	return dispatch, inputs
}

// edgeActive reports whether edge carries data in this run: its source must have
// succeeded and, for a conditional source, the edge handle must match the branch taken.
func (e *Executor) edgeActive(workflow *models.Workflow, edge *models.Edge, state *runState) bool {
	outcome, ok := state.outcomes[edge.Source]
	if !ok || !outcome.Success {
		return false
	}

	source, ok := workflow.NodeByID(edge.Source)
	if !ok || source.Type != models.NodeTypeConditional || edge.SourceHandle == "" {
		return true
	}

	branch, ok := conditional.Branch(outcome.Output)

	return ok && branch == edge.SourceHandle
}

func (e *Executor) sourceValue(workflow *models.Workflow, sourceID string, state *runState) any {
	if source, ok := workflow.NodeByID(sourceID); ok && source.Type == models.NodeTypeTrigger {
		return state.data[models.TriggerDataKey]
	}

	return state.data[sourceID]
}

// dispatchLevel runs the nodes concurrently and waits for all of them.
// Outcomes are returned in the order of nodes.
func (e *Executor) dispatchLevel(
	ctx context.Context,
	r *run,
	nodes []*models.Node,
	inputs []any,
	snapshot map[string]any,
) []models.NodeOutcome {
	outcomes := make([]models.NodeOutcome, len(nodes))

	var group errgroup.Group
	if e.maxParallel > 0 {
		group.SetLimit(e.maxParallel)
	}

	for i, node := range nodes {
		group.Go(func() error {
			outcomes[i] = e.nodes.Execute(ctx, node, protocol.NodeInput{
				ExecutionID: r.execution.ID,
				WorkflowID:  r.workflow.ID,
				Input:       inputs[i],
				Trigger:     r.trigger,
				Data:        snapshot,
			})

			return nil
		})
	}

	_ = group.Wait()

	return outcomes
}

// finish persists the terminal state exactly once and notifies observers.
func (e *Executor) finish(ctx context.Context, r *run, update models.ExecutionUpdate) (*models.Execution, error) {
	var (
		execution *models.Execution
		err       error
	)

	r.finalize.Do(func() {
		e.mu.Lock()
		delete(e.running, r.execution.ID)
		// Cancel may have been accepted after the last level boundary.
		if update.Status == models.ExecutionStatusSuccess && r.cancelled.Load() {
			update.Status = models.ExecutionStatusCancelled
		}
		e.mu.Unlock()

		execution, err = e.executions.Update(context.WithoutCancel(ctx), r.execution.ID, update)
		if err != nil {
			err = fmt.Errorf("failed to finalize execution %s: %w", r.execution.ID, err)

			return
		}

		r.execution = execution

		e.observers.ExecutionFinished(ctx, execution)
	})

	return execution, err
}
