package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelWarn)
	l.Infof("should not appear")
	l.Warnf("should appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Fatalf("Infof logged below configured level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("Warnf did not log at its own level: %q", buf.String())
	}
}

func TestFatalfCallsHandler(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelError)
	var got string
	l.SetFatalHandler(func(msg string) { got = msg })
	l.Fatalf("boom %d", 42)
	if got != "boom 42" {
		t.Fatalf("fatal handler received %q, want %q", got, "boom 42")
	}
	if !strings.Contains(buf.String(), "FATAL boom 42") {
		t.Fatalf("fatal message not logged: %q", buf.String())
	}
}

func TestDiscardLoggerIsSafe(t *testing.T) {
	Discard.Errorf("x")
	Discard.Warnf("x")
	Discard.Infof("x")
	Discard.Debugf("x")
	Discard.Fatalf("x")
}

func TestIsNilDetectsTypedNil(t *testing.T) {
	var l *DefaultLogger
	var iface Logger = l
	if !IsNil(iface) {
		t.Fatalf("IsNil should detect a typed-nil *DefaultLogger")
	}
	if IsNil(Discard) {
		t.Fatalf("IsNil should not flag a valid logger")
	}
}

func TestOrDefaultFallsBackOnNil(t *testing.T) {
	got := OrDefault(nil)
	if got == nil {
		t.Fatalf("OrDefault(nil) returned nil")
	}
}
