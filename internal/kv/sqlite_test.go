package kv

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get("nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected missing key to report ok=false")
	}
}

func TestSetGet(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("queue", `[{"ticketId":"pos-1-a"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := s.Get("queue")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected key to exist")
	}
	if v != `[{"ticketId":"pos-1-a"}]` {
		t.Errorf("unexpected value %q", v)
	}
}

func TestSetReplaces(t *testing.T) {
	s := newTestStore(t)

	s.Set("k", "first")
	s.Set("k", "second")

	v, _, err := s.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "second" {
		t.Errorf("expected second, got %q", v)
	}
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set("k", "durable"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	v, ok, err := s2.Get("k")
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if v != "durable" {
		t.Errorf("expected durable, got %q", v)
	}
}
