// internal/logging/logger_test.go
package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerConfig_Validate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		config := &LoggerConfig{
			Level:  LevelInfo,
			Format: FormatJSON,
		}
		err := config.Validate()
		assert.NoError(t, err)
	})

	t.Run("rejects invalid level", func(t *testing.T) {
		config := &LoggerConfig{Level: "invalid"}
		err := config.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "level")
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		config := &LoggerConfig{Format: "xml"}
		err := config.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "format")
	})

	t.Run("applies defaults", func(t *testing.T) {
		config := &LoggerConfig{}
		config.ApplyDefaults()
		assert.Equal(t, LevelInfo, config.Level)
		assert.Equal(t, FormatJSON, config.Format)
		assert.NotNil(t, config.Output)
	})

	t.Run("development defaults to text", func(t *testing.T) {
		config := &LoggerConfig{Development: true}
		config.ApplyDefaults()
		assert.Equal(t, FormatText, config.Format)
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("creates logger", func(t *testing.T) {
		logger, err := NewLogger(nil)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("rejects bad config", func(t *testing.T) {
		_, err := NewLogger(&LoggerConfig{Level: "loud"})
		assert.Error(t, err)
	})
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&LoggerConfig{
		Level:  LevelInfo,
		Output: &buf,
	})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("list grown", zap.Int("capacity", 20))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "list grown", entry["msg"])
	assert.Equal(t, float64(20), entry["capacity"])
}

func TestLogger_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: FormatText,
		Output: &buf,
	})
	require.NoError(t, err)

	logger.Debug("reallocated", zap.String("reason", "fix"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.Contains(t, out, "debug")
	assert.Contains(t, out, "reallocated")
	assert.Contains(t, out, `"reason": "fix"`)
}
