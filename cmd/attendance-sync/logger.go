package main

import (
	"github.com/septivank/attendance-sync-worker/internal/config"
	"github.com/septivank/attendance-sync-worker/internal/logging"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
}

// newFxLogger keeps fx quiet. Startup failures already reach the user as
// the command's error, so fx's own error events would only duplicate them.
func newFxLogger(logger *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger.Named("fx").WithOptions(zap.IncreaseLevel(zap.DPanicLevel))}
}
