package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromEnv(t *testing.T) {
	t.Setenv(LOG_LEVEL_ENV, "")
	assert.Equal(t, zapcore.DebugLevel, levelFromEnv().Level())

	t.Setenv(LOG_LEVEL_ENV, "warn")
	assert.Equal(t, zapcore.WarnLevel, levelFromEnv().Level())

	t.Setenv(LOG_LEVEL_ENV, "loud")
	assert.Equal(t, zapcore.DebugLevel, levelFromEnv().Level())
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	t.Setenv(LOG_LEVEL_ENV, "error")

	logg := NewLogger()
	assert.False(t, logg.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logg.Desugar().Core().Enabled(zapcore.ErrorLevel))
}
