// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/google/uuid"
)

// CreateTestWorkflow creates an active workflow with default values that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:     uuid.New().String(),
		Name:   "Test Workflow",
		Status: models.WorkflowStatusActive,
		Nodes:  []*models.Node{},
		Edges:  []*models.Edge{},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithID sets the workflow id.
func WithID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithSchedule sets the cron schedule of the workflow.
func WithSchedule(schedule string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Schedule = schedule
	}
}

// WithNodes appends nodes to the workflow.
func WithNodes(nodes ...*models.Node) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = append(w.Nodes, nodes...)
	}
}

// WithEdge appends an edge between source and target. An optional handle sets SourceHandle.
func WithEdge(source, target string, handle ...string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		edge := &models.Edge{
			ID:     fmt.Sprintf("edge-%s-%s-%d", source, target, len(w.Edges)),
			Source: source,
			Target: target,
		}

		if len(handle) > 0 {
			edge.SourceHandle = handle[0]
		}

		w.Edges = append(w.Edges, edge)
	}
}

// WithChain connects the given node ids in sequence.
func WithChain(ids ...string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		for i := 1; i < len(ids); i++ {
			WithEdge(ids[i-1], ids[i])(w)
		}
	}
}

// TriggerNode creates a manual trigger node.
func TriggerNode(id string) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeTrigger, Data: &models.TriggerData{TriggerType: "manual"}}
}

// TaskNode creates a task node referencing template.
func TaskNode(id, template string) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeTask, Data: &models.TaskData{TaskTemplateID: template, Command: "echo " + id}}
}

// NotificationNode creates a notification node on channel.
func NotificationNode(id string, channel models.NotificationChannel, message string) *models.Node {
	return &models.Node{
		ID:   id,
		Type: models.NodeTypeNotification,
		Data: &models.NotificationData{Channel: channel, Title: id, Message: message},
	}
}

// ConditionalNode creates a conditional node testing field == value.
func ConditionalNode(id, field string, value any) *models.Node {
	return &models.Node{
		ID:   id,
		Type: models.NodeTypeConditional,
		Data: &models.ConditionalData{Condition: &models.SimpleCondition{
			Field:    field,
			Operator: models.OperatorEquals,
			Value:    value,
		}},
	}
}

// DelayNode creates a delay node of ms milliseconds.
func DelayNode(id string, ms int64) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeDelay, Data: &models.DelayData{DelayMs: ms}}
}

// MergeNode creates a merge node.
func MergeNode(id string) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeMerge, Data: &models.MergeData{}}
}

// SubworkflowNode creates a node running workflowID.
func SubworkflowNode(id, workflowID string) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeSubworkflow, Data: &models.SubworkflowData{WorkflowID: workflowID}}
}

// WebhookTriggerNode creates a webhook trigger node whose payload must satisfy schema.
func WebhookTriggerNode(id string, schema map[string]any) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeTrigger, Data: &models.TriggerData{TriggerType: "webhook", Schema: schema}}
}
