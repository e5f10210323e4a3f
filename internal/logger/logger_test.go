package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type recordingSink struct {
	tags    []string
	records []map[string]any
	err     error
}

func (s *recordingSink) Post(tag string, message any) error {
	s.tags = append(s.tags, tag)
	s.records = append(s.records, message.(map[string]any))

	return s.err
}

func TestLoggerWritesFormattedMessage(t *testing.T) {
	var buf bytes.Buffer

	l := New(Config{Writer: &buf, JSON: true}) //nolint:exhaustruct
	l.With("component", "search").LogInfo("matched %d listings", 3)

	out := buf.String()
	if !strings.Contains(out, `"msg":"matched 3 listings"`) {
		t.Fatalf("message missing in %s", out)
	}

	if !strings.Contains(out, `"component":"search"`) {
		t.Fatalf("field missing in %s", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer

	l := New(Config{Writer: &buf, Level: slog.LevelWarn}) //nolint:exhaustruct
	l.LogInfo("hidden")
	l.LogDebug("hidden")
	l.LogWarn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("records below level leaked: %s", out)
	}

	if !strings.Contains(out, "shown") {
		t.Fatalf("warn record missing: %s", out)
	}
}

func TestLoggerShipsToSink(t *testing.T) {
	var buf bytes.Buffer

	sink := &recordingSink{} //nolint:exhaustruct
	l := New(Config{Writer: &buf, Sink: sink, SinkLevel: slog.LevelWarn}) //nolint:exhaustruct

	l.LogInfo("local only")
	l.With("listing_id", 7).LogErrorf("boom: %v", errors.New("bad rule"))

	if len(sink.records) != 1 {
		t.Fatalf("sink got %d records, want 1", len(sink.records))
	}

	if sink.tags[0] != "error" {
		t.Errorf("tag: got %q, want error", sink.tags[0])
	}

	rec := sink.records[0]
	if rec["message"] != "boom: bad rule" {
		t.Errorf("message: got %v", rec["message"])
	}

	if rec["listing_id"] != 7 {
		t.Errorf("listing_id: got %v", rec["listing_id"])
	}
}

func TestLoggerSinkFailureIsReportedLocally(t *testing.T) {
	var buf bytes.Buffer

	sink := &recordingSink{err: errors.New("connection refused")} //nolint:exhaustruct
	l := New(Config{Writer: &buf, Sink: sink})                    //nolint:exhaustruct

	l.LogInfo("hello")

	if !strings.Contains(buf.String(), "could not ship log record") {
		t.Fatalf("sink failure not reported: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): got %v, want %v", in, got, want)
		}
	}
}

func TestNewFluentRequiresTagPrefix(t *testing.T) {
	if _, err := NewFluent(FluentConfig{Host: "127.0.0.1", Port: 24224}); !errors.Is(err, ErrTagPrefix) { //nolint:exhaustruct
		t.Fatalf("got %v, want ErrTagPrefix", err)
	}
}
