package log

import (
	"bytes"
	"strings"
	"testing"

	pkglog "github.com/bft-labs/greenfinch/pkg/log"
)

func TestNew_None(t *testing.T) {
	l := New(Options{Format: "none"})
	if _, ok := l.(*pkglog.NoopLogger); !ok {
		t.Fatalf("New(none) = %T, want *NoopLogger", l)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Format: "JSON", Level: "info", Output: &buf})

	l.Info("hello", pkglog.String("k", "v"))

	out := buf.String()
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("output = %q, want JSON line with field", out)
	}
}

func TestNew_DefaultsToConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf})

	l.Info("hello")

	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("output = %q, want console format", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("output = %q, missing message", buf.String())
	}
}
