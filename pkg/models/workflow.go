// Package models defines the core domain models for graph-based workflow automation
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"  // Editable, not triggered by schedules or webhooks
	WorkflowStatusActive WorkflowStatus = "active" // Triggerable by every source
	WorkflowStatusPaused WorkflowStatus = "paused" // Kept, but sources ignore it
)

// IsValid reports whether s is one of the known statuses.
func (s WorkflowStatus) IsValid() bool {
	switch s {
	case WorkflowStatusDraft, WorkflowStatusActive, WorkflowStatusPaused:
		return true
	default:
		return false
	}
}

// Workflow is the unit of storage and execution: a set of typed nodes connected by directed edges.
type Workflow struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"                     validate:"required,min=1"`
	Description    string         `json:"description"`
	Status         WorkflowStatus `json:"status"                   validate:"required,oneof=draft active paused"`
	Nodes          []*Node        `json:"nodes"`
	Edges          []*Edge        `json:"edges"`
	AutoCreateTask bool           `json:"autoCreateTask"`
	Schedule       string         `json:"schedule,omitempty"` // Cron expression used by the schedule trigger source
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NodeByID returns the node with the given id.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// TriggerNodes returns every trigger node of the workflow.
func (w *Workflow) TriggerNodes() []*Node {
	var triggers []*Node

	for _, node := range w.Nodes {
		if node.Type == NodeTypeTrigger {
			triggers = append(triggers, node)
		}
	}

	return triggers
}

// Edge is a directed arc between two nodes.
// SourceHandle disambiguates multiple outputs of one node (conditional true/false branches).
type Edge struct {
	ID           string `json:"id"                     validate:"required"`
	Source       string `json:"source"                 validate:"required"`
	Target       string `json:"target"                 validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}
