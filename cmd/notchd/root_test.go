package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		require.NoError(t, err, "level %q", tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := parseLogLevel("trace")
	assert.Error(t, err)
}

func TestSetupLogger_VerboseOverridesLevel(t *testing.T) {
	globalOpts.logLevel = "error"
	globalOpts.verbose = true
	t.Cleanup(func() {
		globalOpts.logLevel = "info"
		globalOpts.verbose = false
	})

	require.NoError(t, setupLogger())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestSetupLogger_RejectsUnknownLevel(t *testing.T) {
	globalOpts.logLevel = "loud"
	t.Cleanup(func() { globalOpts.logLevel = "info" })

	assert.Error(t, setupLogger())
}
