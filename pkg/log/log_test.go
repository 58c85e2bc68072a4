package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for name, expected := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, expected, ParseLevel(name))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buffer bytes.Buffer

	logger := New(&buffer, "warn", FormatJSON)
	logger.Info("dropped")
	logger.Warn("kept", "workflow_id", "wf-1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "wf-1", record["workflow_id"])
}

func TestNew_Text(t *testing.T) {
	var buffer bytes.Buffer

	New(&buffer, "debug", FormatText).Debug("hello", "node_id", "n1")

	assert.Contains(t, buffer.String(), "msg=hello")
	assert.Contains(t, buffer.String(), "node_id=n1")
}
