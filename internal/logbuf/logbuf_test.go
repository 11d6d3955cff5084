package logbuf

import (
	"log/slog"
	"testing"
	"time"
)

func entry(level, msg string) Entry {
	return Entry{Time: time.Now(), Level: level, Message: msg}
}

func TestRingEvictsOldest(t *testing.T) {
	b := New(3)
	for _, m := range []string{"one", "two", "three", "four"} {
		b.Write(entry("INFO", m))
	}

	got := b.Query(slog.LevelDebug, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Message != "two" || got[2].Message != "four" {
		t.Errorf("unexpected order: %v, %v, %v", got[0].Message, got[1].Message, got[2].Message)
	}
}

func TestQueryLevelFilter(t *testing.T) {
	b := New(10)
	b.Write(entry("DEBUG", "noise"))
	b.Write(entry("INFO", "fine"))
	b.Write(entry("ERROR", "bad"))

	got := b.Query(slog.LevelWarn, 0)
	if len(got) != 1 || got[0].Message != "bad" {
		t.Errorf("expected only the error entry, got %v", got)
	}
}

func TestQueryLimitKeepsNewest(t *testing.T) {
	b := New(10)
	b.Write(entry("INFO", "a"))
	b.Write(entry("INFO", "b"))
	b.Write(entry("INFO", "c"))

	got := b.Query(slog.LevelDebug, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Message != "b" || got[1].Message != "c" {
		t.Errorf("limit must keep the newest entries, got %v, %v", got[0].Message, got[1].Message)
	}
}

func TestHandlerCapturesRecords(t *testing.T) {
	buf := New(10)
	inner := slog.NewTextHandler(&discard{}, &slog.HandlerOptions{Level: slog.LevelError})
	logger := slog.New(NewHandler(inner, buf))

	logger.With("component", "sync").Info("drained queue", "synced", 3, "error", errValue{})

	got := buf.Query(slog.LevelDebug, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 captured entry, got %d", len(got))
	}
	e := got[0]
	if e.Message != "drained queue" {
		t.Errorf("unexpected message %q", e.Message)
	}
	if e.Attrs["component"] != "sync" {
		t.Errorf("expected pre-bound attr, got %v", e.Attrs)
	}
	if e.Attrs["error"] != "synthetic" {
		t.Errorf("expected error rendered as string, got %v", e.Attrs["error"])
	}
}

type errValue struct{}

func (errValue) Error() string { return "synthetic" }

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
