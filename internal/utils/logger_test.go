package utils

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLoggerComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "info").WithComponent("service")

	logger.Info("wallet created", FieldEntityID, "w-1")
	logger.Logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "component=service")
	assert.Contains(t, out, "entity_id=w-1")
	assert.NotContains(t, out, "hidden")
}
