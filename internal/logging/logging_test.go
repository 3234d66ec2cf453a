package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		encoding  string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "debug json", level: "debug", encoding: EncodingJSON, wantLevel: zapcore.DebugLevel},
		{name: "warn console", level: "warn", encoding: EncodingConsole, wantLevel: zapcore.WarnLevel},
		{name: "invalid level defaults to info", level: "loud", encoding: EncodingJSON, wantLevel: zapcore.InfoLevel},
		{name: "unknown encoding", level: "info", encoding: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			logger, err := New(tt.level, tt.encoding)

			// Assert
			if tt.wantErr {
				if err == nil {
					t.Error("New() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !logger.Core().Enabled(tt.wantLevel) {
				t.Errorf("level %s should be enabled", tt.wantLevel)
			}
			if tt.wantLevel > zapcore.DebugLevel && logger.Core().Enabled(tt.wantLevel-1) {
				t.Errorf("level %s should be disabled", tt.wantLevel-1)
			}
		})
	}
}

func TestNew_WritesToOutputs(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "cli.log")

	// Act
	logger, err := New("info", EncodingConsole, path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello from test")
	_ = logger.Sync()

	// Assert
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file = %q, want message", data)
	}
}
