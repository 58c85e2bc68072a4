package mocks

import (
	"context"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockTaskRunner is a mock implementation of protocol.TaskRunner interface.
type MockTaskRunner struct {
	mock.Mock
}

func (m *MockTaskRunner) StartExecution(ctx context.Context, request protocol.TaskRequest) (string, error) {
	args := m.Called(ctx, request)

	return args.String(0), args.Error(1)
}

func (m *MockTaskRunner) GetExecution(ctx context.Context, id string) (*protocol.TaskExecution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.TaskExecution), args.Error(1)
}

// MockSubflowRunner is a mock implementation of protocol.SubflowRunner interface.
type MockSubflowRunner struct {
	mock.Mock
}

func (m *MockSubflowRunner) RunSubflow(ctx context.Context, workflowID string, trigger any) (*models.ExecutionResult, error) {
	args := m.Called(ctx, workflowID, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionResult), args.Error(1)
}

// MockNotifier is a mock implementation of protocol.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, notification protocol.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}

// MockObserver is a mock implementation of protocol.Observer interface.
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) ExecutionStarted(ctx context.Context, execution *models.Execution) {
	m.Called(ctx, execution)
}

func (m *MockObserver) NodeFinished(ctx context.Context, execution *models.Execution, nodeID string, outcome models.NodeOutcome) {
	m.Called(ctx, execution, nodeID, outcome)
}

func (m *MockObserver) ExecutionFinished(ctx context.Context, execution *models.Execution) {
	m.Called(ctx, execution)
}

// MockTrigger is a mock implementation of protocol.Trigger interface.
type MockTrigger struct {
	mock.Mock
}

func (m *MockTrigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	args := m.Called(ctx, callback)

	return args.Error(0)
}

func (m *MockTrigger) Stop(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
