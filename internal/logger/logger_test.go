package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Development(t *testing.T) {
	log, err := New(true, "")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_Production(t *testing.T) {
	log, err := New(false, "")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNew_LevelOverride(t *testing.T) {
	log, err := New(false, "debug")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(false, "shouting"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(true, "")
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}
