package ticketid

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNewFormat(t *testing.T) {
	id := New()
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts in %q, got %d", id, len(parts))
	}
	if parts[0] != "pos" {
		t.Errorf("expected pos prefix, got %q", parts[0])
	}

	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		t.Fatalf("timestamp part %q is not an integer: %v", parts[1], err)
	}
	now := time.Now().UnixMilli()
	if ms < now-5000 || ms > now+5000 {
		t.Errorf("timestamp %d too far from now %d", ms, now)
	}

	if len(parts[2]) == 0 || len(parts[2]) > suffixLen {
		t.Errorf("unexpected suffix length %d in %q", len(parts[2]), id)
	}
	if _, err := strconv.ParseUint(parts[2], 36, 64); err != nil {
		t.Errorf("suffix %q is not base36: %v", parts[2], err)
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestSortableByTime(t *testing.T) {
	earlier := At(time.UnixMilli(1700000000000))
	later := At(time.UnixMilli(1700000001000))
	if !(earlier < later) {
		t.Errorf("expected %q < %q", earlier, later)
	}
}

func TestSuffix(t *testing.T) {
	if got := Suffix("pos-123-abc"); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
	if got := Suffix("nodashes"); got != "nodashes" {
		t.Errorf("expected input unchanged, got %q", got)
	}
}
