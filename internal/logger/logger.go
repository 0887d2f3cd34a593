package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"speech-studio/internal/domain"
)

// New creates a zap logger from settings. The warm-up subsystem treats the
// logger as a fire-and-forget sink, so construction failures fall back to
// the caller rather than panicking.
func New(settings domain.Settings) (*zap.Logger, error) {
	var level zapcore.Level
	switch settings.LogLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoding := "console"
	if settings.LogFormat == "json" {
		encoding = "json"
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return cfg.Build()
}
