// Package netwatch tracks the terminal's connectivity to the central
// server and fires an automatic queue drain when connectivity returns.
package netwatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// CheckFunc answers whether the upstream is reachable right now.
type CheckFunc func(ctx context.Context) bool

// Watcher polls a connectivity check and invokes a callback on every
// offline-to-online transition. The callback runs fire-and-forget; failures
// there leave tickets pending for the next trigger and are only logged.
type Watcher struct {
	check    CheckFunc
	interval time.Duration
	onOnline func(ctx context.Context)
	logger   *slog.Logger

	online atomic.Bool
}

// New creates a watcher. onOnline may be nil.
func New(check CheckFunc, interval time.Duration, onOnline func(ctx context.Context), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{
		check:    check,
		interval: interval,
		onOnline: onOnline,
		logger:   logger,
	}
}

// Online returns the last observed connectivity state.
func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Start polls until the context is cancelled. The first check runs
// immediately so the terminal does not report a stale default state; a
// true result on that first check counts as a transition and triggers the
// callback, covering sales queued while the daemon was down.
func (w *Watcher) Start(ctx context.Context) error {
	w.observe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("connectivity watcher started", "interval", w.interval)
	for {
		select {
		case <-ticker.C:
			w.observe(ctx)
		case <-ctx.Done():
			w.logger.Info("connectivity watcher stopped")
			return ctx.Err()
		}
	}
}

func (w *Watcher) observe(ctx context.Context) {
	now := w.check(ctx)
	was := w.online.Swap(now)
	if now == was {
		return
	}

	if now {
		w.logger.Info("connectivity regained, triggering sync")
		if w.onOnline != nil {
			go w.safeOnOnline(ctx)
		}
	} else {
		w.logger.Warn("connectivity lost")
	}
}

func (w *Watcher) safeOnOnline(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("online callback panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()
	w.onOnline(ctx)
}
