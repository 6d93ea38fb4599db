package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestColoredLoggerLevels(t *testing.T) {
	tests := []struct {
		name       string
		verbose    bool
		wantDebug  bool
		wantWarned bool
	}{
		{"quiet", false, false, true},
		{"verbose", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewColoredLogger(&buf, tt.verbose, false)
			l.ComponentDebug(ComponentClient, "request", zap.String("path", "/api/deployments"))
			l.ComponentWarn(ComponentVault, "retrying start")
			_ = l.Sync()

			out := buf.String()
			if got := strings.Contains(out, "[CLIENT] request"); got != tt.wantDebug {
				t.Errorf("Expected debug output %v, got %q", tt.wantDebug, out)
			}
			if got := strings.Contains(out, "[VAULT] retrying start"); got != tt.wantWarned {
				t.Errorf("Expected warn output %v, got %q", tt.wantWarned, out)
			}
		})
	}
}

func TestColoredLoggerColors(t *testing.T) {
	var buf bytes.Buffer
	l := NewColoredLogger(&buf, true, true)
	l.ComponentInfo(ComponentChain, "confirmed")
	_ = l.Sync()

	if !strings.Contains(buf.String(), Cyan+"[CHAIN]"+Reset) {
		t.Errorf("Expected colored component tag, got %q", buf.String())
	}
}

func TestFor(t *testing.T) {
	if For(nil, ComponentAuth) == nil {
		t.Fatal("Expected no-op logger for nil input")
	}
	base := zap.NewNop()
	if For(base, ComponentAuth) == nil {
		t.Fatal("Expected named logger")
	}
}

func TestNewClientLogger(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		logger, err := NewClientLogger(verbose)
		if err != nil {
			t.Fatalf("NewClientLogger(%v) failed: %v", verbose, err)
		}
		if got := logger.Core().Enabled(zap.DebugLevel); got != verbose {
			t.Errorf("Expected debug enabled=%v, got %v", verbose, got)
		}
	}
}
