package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return New(&Config{Level: level, Format: "json", Writer: &buf}, "test-svc"), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew_JSONFields(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")
	l.WithComponent("gateway").Info("sent", Fields(FieldURL, "http://x", FieldStatus, 200))

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	if got["message"] != "sent" {
		t.Errorf("expected message 'sent', got %v", got["message"])
	}
	if got[FieldComponent] != "gateway" {
		t.Errorf("expected component gateway, got %v", got[FieldComponent])
	}
	if got["service"] != "test-svc" {
		t.Errorf("expected service test-svc, got %v", got["service"])
	}
	if got[FieldStatus] != float64(200) {
		t.Errorf("expected status 200, got %v", got[FieldStatus])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	if n := len(decodeLines(t, buf)); n != 1 {
		t.Fatalf("expected only the warn line, got %d", n)
	}
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := newBufferLogger(t, "nope")
	l.Debug("hidden")
	l.Info("shown")
	if n := len(decodeLines(t, buf)); n != 1 {
		t.Fatalf("expected 1 line, got %d", n)
	}
}

func TestWithError(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")
	l.WithError(errors.New("boom")).Error("failed")
	lines := decodeLines(t, buf)
	if lines[0][FieldError] != "boom" {
		t.Errorf("expected error=boom, got %v", lines[0][FieldError])
	}
}

func TestNop(t *testing.T) {
	Nop().Error("nothing happens")
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestFields_OddCount(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("unexpected fields %v", f)
	}
}

func TestMergeWithDuration(t *testing.T) {
	f := MergeWithDuration(nil, 1500*time.Millisecond)
	if f[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500, got %v", f[FieldDuration])
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(New(&Config{Level: "info", Format: "json", Writer: &buf}, ""))
	WithComponent("cli").Info("hello")
	if !strings.Contains(buf.String(), `"component":"cli"`) {
		t.Errorf("expected component in output, got %s", buf.String())
	}
}
