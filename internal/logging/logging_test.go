package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetupWithWriterLevels(t *testing.T) {
	tests := []struct {
		level     Level
		wantInfo  bool
		wantDebug bool
		verbose   bool
		trace     bool
	}{
		{level: LevelNormal},
		{level: LevelInfo, wantInfo: true},
		{level: LevelVerbose, wantInfo: true, wantDebug: true, verbose: true},
		{level: LevelTrace, wantInfo: true, wantDebug: true, verbose: true, trace: true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		SetupWithWriter(tt.level, &buf)

		Info("info message", "key", "value")
		Debug("debug message")
		Warn("warn message")

		out := buf.String()
		if got := strings.Contains(out, "info message"); got != tt.wantInfo {
			t.Errorf("level %d: info logged = %v, want %v", tt.level, got, tt.wantInfo)
		}
		if got := strings.Contains(out, "debug message"); got != tt.wantDebug {
			t.Errorf("level %d: debug logged = %v, want %v", tt.level, got, tt.wantDebug)
		}
		if !strings.Contains(out, "warn message") {
			t.Errorf("level %d: expected warn to always be logged", tt.level)
		}
		if IsVerbose() != tt.verbose || IsTraceEnabled() != tt.trace {
			t.Errorf("level %d: verbose=%v trace=%v", tt.level, IsVerbose(), IsTraceEnabled())
		}
		if GetLevel() != tt.level {
			t.Errorf("expected level %d, got %d", tt.level, GetLevel())
		}
	}

	SetupWithWriter(LevelNormal, &bytes.Buffer{})
}

func TestLeveledLoggerDebugNeedsTrace(t *testing.T) {
	var buf bytes.Buffer
	SetupWithWriter(LevelVerbose, &buf)
	defer SetupWithWriter(LevelNormal, &bytes.Buffer{})

	l := &LeveledLogger{}
	l.Debug("performing request", "url", "https://example.test")
	if strings.Contains(buf.String(), "performing request") {
		t.Error("expected retryablehttp debug output to be dropped without tracing")
	}

	SetupWithWriter(LevelTrace, &buf)
	l.Debug("performing request", "url", "https://example.test")
	if !strings.Contains(buf.String(), "performing request") {
		t.Error("expected retryablehttp debug output with tracing enabled")
	}
}

func TestToJSON(t *testing.T) {
	if got := ToJSON(nil); got != "null" {
		t.Errorf("expected null, got %q", got)
	}
	if got := ToJSON(map[string]int{"a": 1}); got != `{"a":1}` {
		t.Errorf("unexpected JSON %q", got)
	}
	if got := ToJSON(strings.Repeat("x", 3000)); !strings.HasSuffix(got, "...(truncated)") {
		t.Error("expected long output to be truncated")
	}
}
