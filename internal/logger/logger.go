// Package logger builds the zap loggers used across docket.
package logger

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the encoder and minimum level.
type Config struct {
	// Mode is "dev"/"development" (console encoder) or "prod"/"production"
	// (JSON encoder). Empty means production.
	Mode string `yaml:"mode" mapstructure:"mode"`
	// Level is a zap level name: debug, info, warn, error. Empty means info.
	Level string `yaml:"level" mapstructure:"level"`
}

// New builds a logger from cfg. Output goes to stderr so command output on
// stdout stays clean.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}

	var zc zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "dev", "development":
		zc = zap.NewDevelopmentConfig()
	case "", "prod", "production":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log mode %q", cfg.Mode)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// Secret logs a credential-bearing value with the secret part masked.
// Connection URLs keep scheme and host; anything else becomes [REDACTED].
func Secret(key, value string) zap.Field {
	if value == "" {
		return zap.String(key, "")
	}
	if u, err := url.Parse(value); err == nil && u.Scheme != "" && u.Host != "" {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
		u.RawQuery = ""
		return zap.String(key, u.String())
	}
	return zap.String(key, "[REDACTED]")
}
