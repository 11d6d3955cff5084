package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestAddRejectsInvalidSchedule(t *testing.T) {
	s := New(slog.New(slog.DiscardHandler))
	if err := s.Add("not a schedule", func() {}); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestScheduledJobFires(t *testing.T) {
	s := New(slog.New(slog.DiscardHandler))
	fired := make(chan struct{}, 4)
	if err := s.Add("@every 10ms", func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job never fired")
	}
}
