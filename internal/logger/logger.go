// Package logger builds the zap loggers shared by the serving and
// precompute binaries and carries request-scoped loggers through the
// context.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a logger for the given environment: prod logs JSON,
// local logs colored console lines. Environments without a config file
// are rejected so a typo in ENV fails at startup instead of picking a
// format silently. A non-empty levelOverride replaces the profile's
// default level (debug, info, warn, error).
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("no logger profile for environment %q", env)
	}

	if len(levelOverride) > 0 && levelOverride[0] != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(levelOverride[0])); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelOverride[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
