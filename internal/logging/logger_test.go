package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger("attendance-sync-worker", "debug")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger("attendance-sync-worker", "loud"); err == nil {
		t.Error("Expected error for unknown log level")
	}
}
