package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("line %q is not valid JSON: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestLevelNames(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warning", WarnLevel},
		{"WARN", WarnLevel},
		{"error", ErrorLevel},
		{"nonsense", InfoLevel},
		{"", InfoLevel},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFieldConstructors(t *testing.T) {
	cases := []struct {
		field Field
		key   string
		value any
	}{
		{String("k", "v"), "k", "v"},
		{Int("n", 7), "n", 7},
		{Int64("n64", int64(9)), "n64", int64(9)},
		{Uint64("u", uint64(3)), "u", uint64(3)},
		{Float64("f", 1.5), "f", 1.5},
		{Bool("b", true), "b", true},
		{Duration("d", time.Second), "d", "1s"},
		{Error(errors.New("boom")), "error", "boom"},
		{Component("api"), "component", "api"},
		{Operation("detect"), "operation", "detect"},
		{Nodes(100), "nodes", 100},
		{Communities(5), "communities", 5},
		{Resolution(0.8), "resolution", 0.8},
		{Count(12), "count", 12},
		{Path("/tmp/x"), "path", "/tmp/x"},
	}
	for _, tc := range cases {
		if tc.field.Key != tc.key {
			t.Errorf("field key = %q, want %q", tc.field.Key, tc.key)
		}
		if tc.field.Value != tc.value {
			t.Errorf("field %s value = %v, want %v", tc.key, tc.field.Value, tc.value)
		}
	}
}

func TestErrorFieldNil(t *testing.T) {
	f := Error(nil)
	if f.Key != "error" || f.Value != nil {
		t.Errorf("Error(nil) = %+v, want nil value under error key", f)
	}
}

func TestJSONLoggerEmit(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("graph loaded", Nodes(40), String("quality", "cpm"))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != "INFO" || e.Message != "graph loaded" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Fields["nodes"] != float64(40) {
		t.Errorf("nodes field = %v, want 40", e.Fields["nodes"])
	}
	if e.Fields["quality"] != "cpm" {
		t.Errorf("quality field = %v, want cpm", e.Fields["quality"])
	}
	if _, err := time.Parse(time.RFC3339Nano, e.Time); err != nil {
		t.Errorf("timestamp %q not RFC3339Nano: %v", e.Time, err)
	}
}

func TestJSONLoggerFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	logger.Error("also kept")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries past the warn threshold, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("unexpected levels %q, %q", entries[0].Level, entries[1].Level)
	}
}

func TestJSONLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, ErrorLevel)
	if logger.GetLevel() != ErrorLevel {
		t.Fatalf("GetLevel = %v, want error", logger.GetLevel())
	}

	logger.Info("dropped")
	logger.SetLevel(DebugLevel)
	logger.Debug("kept")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0].Message != "kept" {
		t.Fatalf("expected only the post-SetLevel entry, got %+v", entries)
	}
}

func TestJSONLoggerNoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLogger(&buf, InfoLevel).Info("bare")

	if strings.Contains(buf.String(), "\"fields\"") {
		t.Errorf("entry without fields should omit the fields key: %s", buf.String())
	}
}

func TestWithInheritsAndOverrides(t *testing.T) {
	var buf bytes.Buffer
	base := NewJSONLogger(&buf, DebugLevel)
	child := base.With(Component("optimiser"), Int("pass", 1))

	child.Info("sweep done", Int("pass", 2), Communities(6))
	base.Info("parent unchanged")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	got := entries[0].Fields
	if got["component"] != "optimiser" {
		t.Errorf("child missing inherited component field: %v", got)
	}
	if got["pass"] != float64(2) {
		t.Errorf("per-call field should win on collision, got pass=%v", got["pass"])
	}
	if got["communities"] != float64(6) {
		t.Errorf("missing per-call field: %v", got)
	}
	if len(entries[1].Fields) != 0 {
		t.Errorf("parent picked up child fields: %v", entries[1].Fields)
	}
}

func TestDefaultLoggerGlobals(t *testing.T) {
	var buf bytes.Buffer
	prev := DefaultLogger()
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))
	defer SetDefaultLogger(prev)

	Debug("d")
	Info("i")
	Warn("w")
	ErrorLog("e")
	With(Component("test")).Info("derived")

	entries := decodeLines(t, &buf)
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	if entries[3].Level != "ERROR" {
		t.Errorf("ErrorLog level = %q", entries[3].Level)
	}
	if entries[4].Fields["component"] != "test" {
		t.Errorf("With-derived entry missing field: %v", entries[4].Fields)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("discarded", Int("n", 1))
	logger.SetLevel(DebugLevel)
	if child := logger.With(String("k", "v")); child == nil {
		t.Fatal("With must return a usable logger")
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	StartTimer(logger, "optimise", Nodes(10)).End()
	StartTimer(logger, "profile").EndError(errors.New("interval collapsed"))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if _, ok := entries[0].Fields["latency"]; !ok {
		t.Errorf("timed entry missing latency field: %v", entries[0].Fields)
	}
	if entries[1].Level != "ERROR" || entries[1].Fields["error"] != "interval collapsed" {
		t.Errorf("EndError entry wrong: %+v", entries[1])
	}
}
