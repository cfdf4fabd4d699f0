package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoWritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info")

	Info("redis ready", map[string]any{"addr": "localhost:6379"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "redis ready", entry["message"])
	assert.Equal(t, "localhost:6379", entry["addr"])
}

func TestLevelFiltersLowerEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn")

	Info("dropped", nil)
	Debug("dropped", nil)
	Warn("kept", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"kept"`)
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "loud")

	Debug("dropped", nil)
	Info("kept", nil)

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
