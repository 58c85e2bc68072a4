package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderString(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"input": map[string]any{
			"status": "ok",
			"count":  3,
		},
		"trigger": map[string]any{"branch": "main"},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{name: "plain text is returned as is", template: "deploy finished", expected: "deploy finished"},
		{name: "field access", template: "status: {{ .input.status }}", expected: "status: ok"},
		{name: "trigger access", template: "branch {{ .trigger.branch }}", expected: "branch main"},
		{name: "missing key renders empty", template: "[{{ .input.missing }}]", expected: "[]"},
		{name: "default helper", template: "{{ default \"n/a\" .input.missing }}", expected: "n/a"},
		{name: "json helper", template: "{{ json .trigger }}", expected: `{"branch":"main"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := RenderString(tt.template, data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRenderString_Errors(t *testing.T) {
	t.Parallel()

	_, err := RenderString("{{ .input.status", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")

	_, err = RenderString("{{ index .items 5 }}", map[string]any{"items": []any{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute template")
}

func TestRender_TypedOutput(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"name":  "John",
		"age":   30,
		"isNew": true,
		"orders": []any{
			map[string]any{"id": 1, "total": 100.50},
			map[string]any{"id": 2, "total": 75.25},
		},
	}

	result, err := Render("{{ .name }}", data)
	require.NoError(t, err)
	assert.Equal(t, "John", result)

	result, err = Render("{{ .isNew }}", data)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = Render("{{ .age }}", data)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, result, 0)

	result, err = Render(`{"user": "{{ .name }}", "orders": {{ len .orders }}}`, data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user": "John", "orders": float64(2)}, result)

	_, err = Render(`{"broken": {{ .name }}}`, data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse json")
}

func TestRender_Now(t *testing.T) {
	t.Parallel()

	result, err := RenderString("{{ now }}", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`, result)
}
