package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/persistence"
)

// ExecutionRepository handles execution-related file operations.
type ExecutionRepository struct {
	root  string // File system root for storing executions
	locks keyedMutex
	now   func() time.Time
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root, now: time.Now}
}

func (er *ExecutionRepository) dir() string {
	return filepath.Join(er.root, "executions")
}

// Create stores a new running execution.
func (er *ExecutionRepository) Create(_ context.Context, workflowID string) (*models.Execution, error) {
	execution := persistence.NewExecution(workflowID, er.now())

	unlock := er.locks.lock(execution.ID)
	defer unlock()

	if err := er.write(execution); err != nil {
		return nil, err
	}

	return execution, nil
}

// Update applies a terminal update. Concurrent updates of one execution are serialized.
func (er *ExecutionRepository) Update(
	_ context.Context,
	id string,
	update models.ExecutionUpdate,
) (*models.Execution, error) {
	if err := persistence.ValidateID(id); err != nil {
		return nil, persistence.NewExecutionError("Update", id, err)
	}

	unlock := er.locks.lock(id)
	defer unlock()

	execution, err := er.read(id)
	if err != nil {
		return nil, persistence.NewExecutionError("Update", id, err)
	}

	if err := persistence.ApplyUpdate(execution, update, er.now()); err != nil {
		return nil, persistence.NewExecutionError("Update", id, err)
	}

	if err := er.write(execution); err != nil {
		return nil, err
	}

	return execution, nil
}

// GetByID retrieves an execution by its ID.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	if err := persistence.ValidateID(id); err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	unlock := er.locks.lock(id)
	defer unlock()

	execution, err := er.read(id)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// ListByWorkflow returns the executions of a workflow, newest first.
func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	entries, err := os.ReadDir(er.dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.Execution{}, nil
		}

		return nil, fmt.Errorf("failed to read executions directory: %w", err)
	}

	executions := make([]*models.Execution, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		execution, err := er.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			if persistence.IsExecutionNotFound(err) {
				continue
			}

			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

func (er *ExecutionRepository) read(id string) (*models.Execution, error) {
	body, err := os.ReadFile(filepath.Join(er.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	var execution models.Execution
	if err := json.Unmarshal(body, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) write(execution *models.Execution) error {
	err := os.MkdirAll(er.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	err = writeFile(filepath.Join(er.dir(), execution.ID+".json"), data)
	if err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	return nil
}
