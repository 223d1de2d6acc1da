// Package logger builds the zap logger shared by the server, the
// notification consumer and the HTTP access log.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger for prod and a human-readable
// development logger otherwise.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "prod" || env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Nop returns a logger that discards everything; used by tests.
func Nop() *zap.Logger { return zap.NewNop() }
