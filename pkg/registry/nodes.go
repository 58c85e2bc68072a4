package registry

import (
	"github.com/dukex/flowgraph/pkg/nodes/agent"
	"github.com/dukex/flowgraph/pkg/nodes/conditional"
	"github.com/dukex/flowgraph/pkg/nodes/delay"
	"github.com/dukex/flowgraph/pkg/nodes/loop"
	"github.com/dukex/flowgraph/pkg/nodes/merge"
	"github.com/dukex/flowgraph/pkg/nodes/notification"
	"github.com/dukex/flowgraph/pkg/nodes/subworkflow"
	"github.com/dukex/flowgraph/pkg/nodes/task"
	"github.com/dukex/flowgraph/pkg/nodes/trigger"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes(deps protocol.Dependencies) {
	r.RegisterNode(trigger.NewTriggerNodeFactory())
	r.RegisterNode(conditional.NewConditionalNodeFactory())
	r.RegisterNode(merge.NewMergeNodeFactory())
	r.RegisterNode(delay.NewDelayNodeFactory())

	// Nodes backed by collaborators
	r.RegisterNode(task.NewTaskNodeFactory(deps.Tasks, deps.Wait))
	r.RegisterNode(agent.NewAgentNodeFactory(deps.Tasks, deps.Wait))
	r.RegisterNode(notification.NewNotificationNodeFactory(deps.Notifier))
	r.RegisterNode(subworkflow.NewSubworkflowNodeFactory(deps.Subflows))
	r.RegisterNode(loop.NewLoopNodeFactory(deps.Subflows))
}
