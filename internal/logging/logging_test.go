package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"trace", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(Config{Level: "warn", Format: FormatJSON}, &buf)
		require.NoError(t, err)
		log.Info("dropped")
		log.Warn("kept", "component", "engine")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "kept", line["msg"])
		assert.Equal(t, "engine", line["component"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(DefaultConfig(), &buf)
		require.NoError(t, err)
		log.Debug("dropped")
		log.Info("kept")
		assert.Contains(t, buf.String(), "msg=kept")
		assert.NotContains(t, buf.String(), "dropped")
	})

	t.Run("bad format", func(t *testing.T) {
		cfg := Config{Format: "xml"}
		assert.Error(t, cfg.Validate())
		_, err := New(cfg, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
