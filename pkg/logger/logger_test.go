package logger

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

func TestJSONFormatFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info("Client registered", "userID", "u1")
	assert.Zero(t, buf.Len())

	log.Warn("Delivery failed", "connID", "c1")
	assert.Contains(t, buf.String(), `"msg":"Delivery failed"`)
	assert.Contains(t, buf.String(), `"connID":"c1"`)
}
