package alert

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
	done chan struct{}
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(_ context.Context, subject, body string) error {
	r.mu.Lock()
	r.sent = append(r.sent, body)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return r.err
}

func TestFanoutDeliversToAll(t *testing.T) {
	a := &recordingNotifier{done: make(chan struct{}, 1)}
	b := &recordingNotifier{done: make(chan struct{}, 1)}
	f := NewFanout("till-01", slog.New(slog.DiscardHandler), a, b)

	f.Notify(context.Background(), "queue stuck", "3 tickets failed")

	for i, n := range []*recordingNotifier{a, b} {
		select {
		case <-n.done:
		case <-time.After(time.Second):
			t.Fatalf("notifier %d never received the alert", i)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(a.sent))
	}
	if !strings.Contains(a.sent[0], "till-01") {
		t.Errorf("expected terminal id in message, got %q", a.sent[0])
	}
	if !strings.Contains(a.sent[0], "queue stuck") {
		t.Errorf("expected subject in message, got %q", a.sent[0])
	}
}

func TestFanoutSwallowsDeliveryErrors(t *testing.T) {
	n := &recordingNotifier{err: errors.New("channel down"), done: make(chan struct{}, 1)}
	f := NewFanout("till-01", slog.New(slog.DiscardHandler), n)

	// Must not panic or block.
	f.Notify(context.Background(), "subject", "body")
	select {
	case <-n.done:
	case <-time.After(time.Second):
		t.Fatal("delivery never attempted")
	}
}

func TestFanoutWithNoNotifiers(t *testing.T) {
	f := NewFanout("till-01", slog.New(slog.DiscardHandler))
	f.Notify(context.Background(), "subject", "body") // no-op, must not panic
}
