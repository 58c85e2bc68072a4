package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/flowgraph/pkg/mocks"
	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"file://./data", "file"},
		{"./data", "file"},
		{"postgres://user@localhost/db", "postgres"},
		{"postgresql://user@localhost/db", "postgresql"},
		{"mysql://localhost", "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, parsePersistenceProvider(tt.url))
		})
	}
}

func TestNewPersistence(t *testing.T) {
	store, err := NewPersistence(t.Context(), slog.Default(), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.HealthCheck(t.Context()))

	_, err = NewPersistence(t.Context(), slog.Default(), "mysql://localhost")
	require.ErrorIs(t, err, ErrUnsupportedDatabase)
}

func TestNewEventBus(t *testing.T) {
	bus, err := NewEventBus(slog.Default(), "gochannel", nil)
	require.NoError(t, err)
	assert.NoError(t, bus.Close(context.Background()))

	_, err = NewEventBus(slog.Default(), "kafka", nil)
	require.Error(t, err)

	_, err = NewEventBus(slog.Default(), "rabbitmq", nil)
	require.Error(t, err)
}

func TestNewNotifier(t *testing.T) {
	dispatcher, err := NewNotifier(t.Context(), slog.Default(), NotifierConfig{
		SlackWebhookURL: "https://hooks.slack.com/services/T/B/X",
	})
	require.NoError(t, err)
	assert.Equal(t, []models.NotificationChannel{models.NotificationChannelSlack}, dispatcher.Channels())

	_, err = NewNotifier(t.Context(), slog.Default(), NotifierConfig{DiscordWebhookURL: "not a url"})
	require.Error(t, err)
}

func TestNewEngine(t *testing.T) {
	store, err := NewPersistence(t.Context(), slog.Default(), t.TempDir())
	require.NoError(t, err)

	engine := NewEngine(slog.Default(), store, &mocks.MockTaskRunner{}, &mocks.MockNotifier{}, protocol.WaitOptions{})

	assert.ElementsMatch(t, models.NodeTypes, engine.Registry.Types())

	message, healthy := engine.Registry.HealthCheck(t.Context())
	assert.True(t, healthy, message)
}

func TestNewGraphValidator(t *testing.T) {
	validator, err := NewGraphValidator(slog.Default(), nil)
	require.NoError(t, err)

	graph := func(condition map[string]any) map[string]any {
		return map[string]any{
			"name": "loop",
			"nodes": []any{
				map[string]any{"id": "t", "type": "trigger", "position": map[string]any{"x": 0, "y": 0}, "data": map[string]any{"triggerType": "manual"}},
				map[string]any{"id": "l", "type": "loop", "position": map[string]any{"x": 1, "y": 0}, "data": map[string]any{
					"loopType":  "while",
					"condition": condition,
				}},
			},
			"edges": []any{map[string]any{"id": "e", "source": "t", "target": "l"}},
		}
	}

	valid := validator.Validate(graph(map[string]any{
		"operator": "AND",
		"groups": []any{map[string]any{
			"operator":   "OR",
			"conditions": []any{map[string]any{"field": "index", "operator": "less_than", "value": 3}},
		}},
	}))
	assert.True(t, valid.Valid, valid.Errors)

	invalid := validator.Validate(graph(map[string]any{
		"operator": "AND",
		"groups": []any{map[string]any{
			"operator":   "OR",
			"conditions": []any{map[string]any{"field": 7, "operator": "less_than"}},
		}},
	}))
	assert.False(t, invalid.Valid)
	require.Len(t, invalid.Errors, 1)
	assert.Contains(t, invalid.Errors[0], "node l data is invalid")
	assert.Contains(t, invalid.Errors[0], "field")
}

func TestParseAgents(t *testing.T) {
	options, err := ParseAgents([]string{"claude=claude -p", " review = ./review.sh "})
	require.NoError(t, err)
	assert.Len(t, options, 2)

	for _, invalid := range []string{"claude", "=cmd", "name="} {
		_, err := ParseAgents([]string{invalid})
		assert.Error(t, err, invalid)
	}
}

func TestNewRuntime(t *testing.T) {
	runtime, err := NewRuntime(t.Context(), slog.Default(), RuntimeConfig{
		DatabaseURL: "file://" + t.TempDir(),
		Agents:      []string{"echo=cat"},
	})
	require.NoError(t, err)

	assert.NotNil(t, runtime.Executor)
	assert.Empty(t, runtime.Notifier.Channels())
	assert.NoError(t, runtime.Close(t.Context()))
}
