package monitoring

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")

	if !called {
		t.Error("Custom logger was not called")
	}

	// Now set to nil and verify it doesn't call our logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestSetErrorLogger(t *testing.T) {
	original := Errorf
	defer func() { Errorf = original }()

	var got string
	SetErrorLogger(func(format string, v ...interface{}) {
		got = format
	})
	Errorf("boom %d", 1)
	if got != "boom %d" {
		t.Errorf("expected format to be forwarded, got %q", got)
	}

	SetErrorLogger(nil)
	Errorf("silent")
}

func TestDefaultSinkWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	originalLogf := Logf
	defer func() { Logf = originalLogf }()
	Logf = base.Infof

	Logf("replay opened %s", "capture.pcap")
	if !strings.Contains(buf.String(), "replay opened capture.pcap") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer SetLevel("info")

	Debugf("packet %d", 7)
	if !strings.Contains(buf.String(), "packet 7") {
		t.Errorf("expected debug message, got %q", buf.String())
	}

	if err := SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
