// Package logger builds the zap logger shared by the binaries.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a zap logger configured for env: "production"/"prod" yields
// JSON output with ISO8601 timestamps, anything else a colored console logger.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config

	if env == "production" || env == "prod" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// NewFromEnv reads APP_ENV (default "development") and calls New.
func NewFromEnv() (*zap.Logger, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	return New(env)
}

// Must is like NewFromEnv but falls back to a no-op logger on error so that
// command-line tools can always log.
func Must() *zap.Logger {
	l, err := NewFromEnv()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
