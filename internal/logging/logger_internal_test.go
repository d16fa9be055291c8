package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONWithLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", FormatJSON)

	logger.Info().Msg("dropped")
	logger.Warn().Str("url", "https://example.com/story.html").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "https://example.com/story.html", entry["url"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger := NewLoggerTo(&bytes.Buffer{}, "loud", FormatJSON)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = NewLoggerTo(&bytes.Buffer{}, "", FormatJSON)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "debug", FormatConsole)
	logger.Debug().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}
