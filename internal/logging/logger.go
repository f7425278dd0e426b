package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLevel = "info"

// New builds a JSON logger for production and a console logger otherwise.
// Unknown levels fall back to info.
func New(level, environment string) (*zap.Logger, error) {
	atomic := zap.NewAtomicLevel()
	if err := atomic.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		_ = atomic.UnmarshalText([]byte(defaultLevel))
	}

	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		cfg.DisableStacktrace = true
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = atomic

	return cfg.Build()
}
