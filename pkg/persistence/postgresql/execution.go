package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const selectExecution = `
	SELECT
		id
	  , workflow_id
	  , status
	  , started_at
	  , completed_at
	  , error_message
	  , execution_data
	FROM executions
`

// Create stores a new running execution.
func (r *ExecutionRepository) Create(ctx context.Context, workflowID string) (*models.Execution, error) {
	execution := persistence.NewExecution(workflowID, time.Now())

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, status, started_at, execution_data)
		VALUES ($1, $2, $3, $4, '{}')
	`, execution.ID, execution.WorkflowID, string(execution.Status), execution.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution for workflow %s: %w", workflowID, err)
	}

	return execution, nil
}

// Update applies a terminal update inside a transaction holding the row lock.
func (r *ExecutionRepository) Update(
	ctx context.Context,
	id string,
	update models.ExecutionUpdate,
) (*models.Execution, error) {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	execution, err := scanExecution(transaction.QueryRowContext(ctx, selectExecution+" WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewExecutionError("Update", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
	}

	if err := persistence.ApplyUpdate(execution, update, time.Now()); err != nil {
		return nil, persistence.NewExecutionError("Update", id, err)
	}

	data, err := json.Marshal(execution.ExecutionData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution data: %w", err)
	}

	_, err = transaction.ExecContext(ctx, `
		UPDATE executions
		SET status = $2, completed_at = $3, error_message = $4, execution_data = $5
		WHERE id = $1
	`, id, string(execution.Status), execution.CompletedAt, execution.Error, data)
	if err != nil {
		return nil, fmt.Errorf("failed to update execution %s: %w", id, err)
	}

	err = transaction.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit execution %s: %w", id, err)
	}

	return execution, nil
}

// GetByID returns an execution by its ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	execution, err := scanExecution(r.db.QueryRowContext(ctx, selectExecution+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	return execution, nil
}

// ListByWorkflow returns the executions of a workflow, newest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, selectExecution+" WHERE workflow_id = $1 ORDER BY started_at DESC", workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		status      string
		completedAt sql.NullTime
		data        []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&status,
		&execution.StartedAt,
		&completedAt,
		&execution.Error,
		&data,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)
	execution.StartedAt = execution.StartedAt.UTC()

	if completedAt.Valid {
		completed := completedAt.Time.UTC()
		execution.CompletedAt = &completed
	}

	execution.ExecutionData = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &execution.ExecutionData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution data: %w", err)
		}
	}

	return &execution, nil
}
