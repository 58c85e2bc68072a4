package protocol

import (
	"context"
)

// TriggerCallback starts an execution of workflowID with the given trigger data.
type TriggerCallback func(ctx context.Context, workflowID string, data any) error

// Trigger is a long-running source of workflow executions.
type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
}
