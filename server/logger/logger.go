package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LOG_LEVEL_ENV overrides the default debug level, e.g. SAFENEST_LOG_LEVEL=warn
const LOG_LEVEL_ENV = "SAFENEST_LOG_LEVEL"

func NewLogger() *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.Level = levelFromEnv()

	logger, err := config.Build()
	if err != nil {
		log.Panic(err)
	}

	// flushes buffer, if any
	defer logger.Sync()

	return logger.Sugar()
}

// levelFromEnv falls back to debug when the variable is unset or not a zap level
func levelFromEnv() zap.AtomicLevel {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)

	value := os.Getenv(LOG_LEVEL_ENV)
	if value == "" {
		return level
	}

	if err := level.UnmarshalText([]byte(value)); err != nil {
		log.Printf("invalid %v %q, using debug", LOG_LEVEL_ENV, value)
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return level
}
