package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestDefaultLoggerLazyInit(t *testing.T) {
	SetDefaultLogger(nil)

	logger := DefaultLogger()
	if logger == nil {
		t.Fatal("expected lazily initialized logger, got nil")
	}

	// Second call returns the same instance.
	if DefaultLogger() != logger {
		t.Error("expected DefaultLogger to return the same instance")
	}
}

func TestSetDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := New(Config{
		Level:  LevelInfo,
		Format: FormatText,
		Output: NewOutput(&buf),
	})

	SetDefaultLogger(custom)
	t.Cleanup(func() { SetDefaultLogger(nil) })

	DefaultLogger().Info("hello from global")

	if !strings.Contains(buf.String(), "hello from global") {
		t.Errorf("expected custom logger output, got %q", buf.String())
	}
}
