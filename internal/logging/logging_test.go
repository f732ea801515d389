package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetLevelAffectsDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info")
	child := l.With("component", "projector")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}

	if err := l.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	child.Debug("shown")
	if !strings.Contains(buf.String(), "msg=shown") || !strings.Contains(buf.String(), "component=projector") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	l := New(&bytes.Buffer{}, "warn")
	if err := l.SetLevel("verbose"); err == nil {
		t.Fatalf("expected error")
	}
	if l.Level() != slog.LevelWarn {
		t.Fatalf("level changed to %v", l.Level())
	}
}
