package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LoggerOptions{Level: "info", Format: "json", Output: &buf})
		require.NotNil(t, logger)
		logger.Info().Str("url", "http://h/.git/HEAD").Msg("downloaded")
		assert.Contains(t, buf.String(), `"message":"downloaded"`)
		assert.Contains(t, buf.String(), `"url":"http://h/.git/HEAD"`)
	})

	t.Run("pretty output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LoggerOptions{Level: "info", Format: "pretty", Output: &buf})
		logger.Info().Msg("downloaded")
		assert.Contains(t, buf.String(), "downloaded")
		assert.NotContains(t, buf.String(), `"message"`)
	})

	t.Run("verbose forces debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LoggerOptions{Level: "error", Format: "json", Output: &buf, Verbose: true})
		logger.Debug().Msg("already seen")
		assert.Contains(t, buf.String(), "already seen")
	})
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		logFunc   func(*Logger)
		shouldLog bool
	}{
		{"debug level logs debug", "debug", func(l *Logger) { l.Debug().Msg("x") }, true},
		{"info level drops debug", "info", func(l *Logger) { l.Debug().Msg("x") }, false},
		{"warn level drops info", "warn", func(l *Logger) { l.Info().Msg("x") }, false},
		{"error level logs error", "error", func(l *Logger) { l.Error().Msg("x") }, true},
		{"unknown level means info", "loud", func(l *Logger) { l.Info().Msg("x") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewLogger(LoggerOptions{Level: tt.level, Format: "json", Output: &buf}))
			if tt.shouldLog {
				assert.NotEmpty(t, buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerOptions{Level: "info", Format: "json", Output: &buf})

	logger.WithComponent("worker").
		WithWorker(3).
		WithTarget("http://example.org/.git/").
		WithURL("http://example.org/.git/index").
		Info().Msg("parsed")

	output := buf.String()
	assert.Contains(t, output, `"component":"worker"`)
	assert.Contains(t, output, `"worker":3`)
	assert.Contains(t, output, `"target":"http://example.org/.git/"`)
	assert.Contains(t, output, `"url":"http://example.org/.git/index"`)
}

func TestNewOutputLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewOutputLogger("warn", "json", false, &buf)
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	buf.Reset()
	logger = NewOutputLogger("", "json", true, &buf)
	logger.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewNopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNopLogger().Error().Msg("discarded")
	})
}

func TestSetGlobalLevel(t *testing.T) {
	assert.NotPanics(t, func() {
		SetGlobalLevel("debug")
	})
	SetGlobalLevel("trace-ish")
	// unknown names fall back to info
	SetGlobalLevel("info")
}
