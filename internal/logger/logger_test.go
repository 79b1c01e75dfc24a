package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected log.Level
	}{
		{input: "debug", expected: log.DebugLevel},
		{input: "WARN", expected: log.WarnLevel},
		{input: "error", expected: log.ErrorLevel},
		{input: "fatal", expected: log.FatalLevel},
		{input: "info", expected: log.InfoLevel},
		{input: "", expected: log.InfoLevel},
		{input: "chatty", expected: log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { _ = Configure("info", "", false) })

	t.Run("flag wins over environment", func(t *testing.T) {
		t.Setenv("CALMCHAT_LOG_LEVEL", "error")
		require.NoError(t, Configure("debug", "", false))
		assert.Equal(t, log.DebugLevel, Logger.GetLevel())
	})

	t.Run("environment used without flag", func(t *testing.T) {
		t.Setenv("CALMCHAT_LOG_LEVEL", "warn")
		require.NoError(t, Configure("", "", false))
		assert.Equal(t, log.WarnLevel, Logger.GetLevel())
	})

	t.Run("test mode pins info", func(t *testing.T) {
		require.NoError(t, Configure("debug", "", true))
		assert.Equal(t, log.InfoLevel, Logger.GetLevel())
	})

	t.Run("log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "calmchat.log")
		require.NoError(t, Configure("info", path, false))

		Info("provider promoted", "provider", "B")
		NewStyledLogger("Failover").Info("walk finished")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "provider promoted")
		assert.Contains(t, string(data), "walk finished")
	})

	t.Run("unwritable log file", func(t *testing.T) {
		err := Configure("info", filepath.Join(t.TempDir(), "missing", "calmchat.log"), false)
		assert.Error(t, err)
	})
}
