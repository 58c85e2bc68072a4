package merge

import (
	"context"
	"testing"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeNode_PassesInputThrough(t *testing.T) {
	t.Parallel()

	inputs := []any{
		nil,
		"single",
		map[string]any{"left": map[string]any{"a": 1}, "right": []any{2, 3}},
	}

	node := NewMergeNode("join")
	assert.Equal(t, "join", node.ID())
	assert.Equal(t, models.NodeTypeMerge, node.Type())

	for _, input := range inputs {
		output, err := node.Execute(context.Background(), protocol.NodeInput{Input: input, Trigger: "ignored"})
		require.NoError(t, err)
		assert.Equal(t, input, output)
	}
}

func TestMergeNodeFactory(t *testing.T) {
	t.Parallel()

	factory := NewMergeNodeFactory()

	node, err := factory.Create(context.Background(), &models.Node{ID: "m", Type: models.NodeTypeMerge})
	require.NoError(t, err)
	assert.Equal(t, "m", node.ID())
	assert.Equal(t, "Merge", factory.Name())
}
