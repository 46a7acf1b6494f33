package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug"}, &buf)
	require.NoError(t, err)

	Component(logger, "api", "mud-1").WithField("event_type", "request").Debug("Handled request")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "api", line["component"])
	assert.Equal(t, "mud-1", line["instance"])
	assert.Equal(t, "request", line["event_type"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "Handled request", line["message"])
	assert.Contains(t, line, "timestamp")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Empty(t, buf.String())
	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Options{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
