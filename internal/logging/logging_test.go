package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, Level(0))
	assert.Equal(t, zapcore.WarnLevel, Level(-3))
	assert.Equal(t, zapcore.InfoLevel, Level(1))
	assert.Equal(t, zapcore.DebugLevel, Level(2))
	assert.Equal(t, zapcore.DebugLevel, Level(9))
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "replypilot.log")

	logger, err := New(Options{DebugLevel: 1, File: path})
	require.NoError(t, err)
	logger.Named("pilot").Info("draft ready")
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "draft ready")
	assert.Contains(t, string(data), `"logger":"pilot"`)
	assert.False(t, strings.Contains(string(data), "hidden at info level"))
}
