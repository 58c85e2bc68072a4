package models

import (
	"encoding/json"
	"fmt"
)

// NodeType is the variant tag of a node.
type NodeType string

const (
	NodeTypeTrigger      NodeType = "trigger"
	NodeTypeTask         NodeType = "task"
	NodeTypeConditional  NodeType = "conditional"
	NodeTypeDelay        NodeType = "delay"
	NodeTypeNotification NodeType = "notification"
	NodeTypeMerge        NodeType = "merge"
	NodeTypeLoop         NodeType = "loop"
	NodeTypeSubworkflow  NodeType = "subworkflow"
	NodeTypeAgent        NodeType = "agent"
)

// NodeTypes lists every supported variant tag.
var NodeTypes = []NodeType{
	NodeTypeTrigger,
	NodeTypeTask,
	NodeTypeConditional,
	NodeTypeDelay,
	NodeTypeNotification,
	NodeTypeMerge,
	NodeTypeLoop,
	NodeTypeSubworkflow,
	NodeTypeAgent,
}

// Position is the presentation-only location of a node on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the variant-specific payload of a node.
type NodeData interface {
	NodeType() NodeType
}

// Node is one typed step of a workflow graph.
type Node struct {
	ID       string   `json:"id"       validate:"required"`
	Type     NodeType `json:"type"     validate:"required"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// UnmarshalJSON decodes the data payload into the concrete shape for the node type.
// Unknown types keep their raw payload in UnknownData.
func (n *Node) UnmarshalJSON(body []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return err
	}

	data, err := decodeNodeData(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}

	n.ID = raw.ID
	n.Type = raw.Type
	n.Position = raw.Position
	n.Data = data

	return nil
}

// MarshalJSON encodes the node with its data payload.
func (n Node) MarshalJSON() ([]byte, error) {
	var data json.RawMessage

	switch d := n.Data.(type) {
	case nil:
		data = json.RawMessage("{}")
	case *UnknownData:
		data = d.Raw
	default:
		encoded, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}

		data = encoded
	}

	return json.Marshal(nodeJSON{
		ID:       n.ID,
		Type:     n.Type,
		Position: n.Position,
		Data:     data,
	})
}

func decodeNodeData(nodeType NodeType, raw json.RawMessage) (NodeData, error) {
	var data NodeData

	switch nodeType {
	case NodeTypeTrigger:
		data = &TriggerData{}
	case NodeTypeTask:
		data = &TaskData{}
	case NodeTypeConditional:
		data = &ConditionalData{}
	case NodeTypeDelay:
		data = &DelayData{}
	case NodeTypeNotification:
		data = &NotificationData{}
	case NodeTypeMerge:
		data = &MergeData{}
	case NodeTypeLoop:
		data = &LoopData{}
	case NodeTypeSubworkflow:
		data = &SubworkflowData{}
	case NodeTypeAgent:
		data = &AgentData{}
	default:
		return &UnknownData{Type: nodeType, Raw: raw}, nil
	}

	if len(raw) == 0 || string(raw) == "null" {
		return data, nil
	}

	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("invalid %s data: %w", nodeType, err)
	}

	return data, nil
}

// TriggerData configures a trigger node. Schema optionally constrains webhook payloads.
type TriggerData struct {
	Label       string         `json:"label,omitempty"`
	TriggerType string         `json:"triggerType,omitempty"` // manual, webhook, schedule
	Schema      map[string]any `json:"schema,omitempty"`
}

func (*TriggerData) NodeType() NodeType { return NodeTypeTrigger }

// TaskData references an external task and the command it runs.
type TaskData struct {
	TaskTemplateID string `json:"taskTemplateId"`
	Command        string `json:"command,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
}

func (*TaskData) NodeType() NodeType { return NodeTypeTask }

// ConditionalData carries either a single condition or a condition group.
type ConditionalData struct {
	Condition      *SimpleCondition `json:"condition,omitempty"`
	ConditionGroup *ConditionGroup  `json:"conditionGroup,omitempty"`
}

func (*ConditionalData) NodeType() NodeType { return NodeTypeConditional }

// DelayData suspends execution for DelayMs milliseconds.
type DelayData struct {
	DelayMs int64 `json:"delayMs"`
}

func (*DelayData) NodeType() NodeType { return NodeTypeDelay }

// NotificationChannel names a notification backend.
type NotificationChannel string

const (
	NotificationChannelDiscord NotificationChannel = "discord"
	NotificationChannelSlack   NotificationChannel = "slack"
	NotificationChannelEmail   NotificationChannel = "email"
)

// NotificationData is the message sent by a notification node. Title and Message are templates.
type NotificationData struct {
	Channel NotificationChannel `json:"channel"`
	Title   string              `json:"title,omitempty"`
	Message string              `json:"message"`
}

func (*NotificationData) NodeType() NodeType { return NodeTypeNotification }

// MergeData has no configuration; merge nodes pass their input through.
type MergeData struct{}

func (*MergeData) NodeType() NodeType { return NodeTypeMerge }

// LoopType discriminates loop strategies.
type LoopType string

const (
	LoopTypeCount   LoopType = "count"
	LoopTypeForEach LoopType = "forEach"
	LoopTypeWhile   LoopType = "while"
)

// LoopData configures a bounded loop. WorkflowID, when set, is run once per iteration.
type LoopData struct {
	LoopType      LoopType        `json:"loopType"`
	Count         int             `json:"count,omitempty"`
	ItemsPath     string          `json:"itemsPath,omitempty"`
	Condition     *ConditionGroup `json:"condition,omitempty"`
	MaxIterations int             `json:"maxIterations,omitempty"`
	WorkflowID    string          `json:"workflowId,omitempty"`
}

func (*LoopData) NodeType() NodeType { return NodeTypeLoop }

// SubworkflowData references another workflow to run as a nested execution.
type SubworkflowData struct {
	WorkflowID string `json:"workflowId"`
}

func (*SubworkflowData) NodeType() NodeType { return NodeTypeSubworkflow }

// AgentData invokes a named agent with a prompt template.
type AgentData struct {
	Agent  string `json:"agent"`
	Prompt string `json:"prompt"`
	Cwd    string `json:"cwd,omitempty"`
}

func (*AgentData) NodeType() NodeType { return NodeTypeAgent }

// UnknownData holds the payload of a node whose type is not supported.
type UnknownData struct {
	Type NodeType
	Raw  json.RawMessage
}

func (d *UnknownData) NodeType() NodeType { return d.Type }
