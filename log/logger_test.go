package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, run RunContext) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewLogger(run).WithOutput(&buf)
	return l, &buf
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
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLoggerIncludesRunContextFields(t *testing.T) {
	l, buf := newTestLogger(t, RunContext{RunID: "run-1", ScriptHash: "abc123", CompileGen: 2})
	l.Info("mounted block", map[string]any{"blockKey": "blk:1:1:1"})

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", entry["run_id"])
	}
	if entry["script_hash"] != "abc123" {
		t.Errorf("script_hash = %v, want abc123", entry["script_hash"])
	}
	if entry["compile_gen"] != float64(2) {
		t.Errorf("compile_gen = %v, want 2", entry["compile_gen"])
	}
	if entry["message"] != "mounted block" {
		t.Errorf("message = %v, want %q", entry["message"], "mounted block")
	}
}

func TestLoggerOmitsEmptyScriptHash(t *testing.T) {
	l, buf := newTestLogger(t, RunContext{RunID: "run-2"})
	l.Warn("no script yet", nil)

	entries := decodeLines(t, buf)
	if _, ok := entries[0]["script_hash"]; ok {
		t.Error("script_hash field present with empty RunContext.ScriptHash, want omitted")
	}
}

func TestLoggerLevels(t *testing.T) {
	l, buf := newTestLogger(t, RunContext{RunID: "run-3"})

	l.Debug("d", nil)
	l.Info("i", nil)
	l.Warn("w", nil)
	l.Error("e", nil)

	entries := decodeLines(t, buf)
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	wantLevels := []string{"debug", "info", "warn", "error"}
	for i, want := range wantLevels {
		if entries[i]["level"] != want {
			t.Errorf("entry[%d].level = %v, want %v", i, entries[i]["level"], want)
		}
	}
}

func TestSugaredLoggerPrintfStyle(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(RunContext{RunID: "run-4"}).WithOutput(&buf)
	sugar := l.Sugar()

	sugar.Infof("pushed %s at round %d", "blk:1", 3)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["message"] != "pushed blk:1 at round 3" {
		t.Errorf("message = %v, want formatted sugar message", entries[0]["message"])
	}
}

func TestSugaredLoggerWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(RunContext{RunID: "run-5"}).WithOutput(&buf)
	sugar := l.Sugar().With("blockKey", "blk:2")

	sugar.Warnf("idle timeout")

	entries := decodeLines(t, &buf)
	if entries[0]["blockKey"] != "blk:2" {
		t.Errorf("blockKey = %v, want blk:2", entries[0]["blockKey"])
	}
}
