package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInit_JSON(t *testing.T) {
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
		zerolog.DefaultContextLogger = nil
	})

	var buf bytes.Buffer
	if err := Init(Options{Level: "warn", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Info().Msg("dropped")
	log.Ctx(context.Background()).Warn().Str("k", "v").Msg("kept")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "kept" || entry["k"] != "v" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestInit_Invalid(t *testing.T) {
	if err := Init(Options{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
	if err := Init(Options{Format: "xml"}); err == nil {
		t.Error("expected error for invalid format")
	}
}

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debug(format string, _ ...any) { r.lines = append(r.lines, "debug:"+format) }
func (r *recordingLogger) Info(format string, _ ...any)  { r.lines = append(r.lines, "info:"+format) }
func (r *recordingLogger) Warn(format string, _ ...any)  { r.lines = append(r.lines, "warn:"+format) }
func (r *recordingLogger) Error(format string, _ ...any) { r.lines = append(r.lines, "error:"+format) }

func TestMultiLogger(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	m := NewMultiLogger(a, b)
	m.Info("one")
	m.Error("two")

	for _, r := range []*recordingLogger{a, b} {
		if len(r.lines) != 2 || r.lines[0] != "info:one" || r.lines[1] != "error:two" {
			t.Errorf("unexpected lines %v", r.lines)
		}
	}
}
