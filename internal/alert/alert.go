// Package alert pushes operator-facing notifications for conditions the
// terminal cannot resolve on its own: storage write failures (data-loss
// risk) and drain passes that end with errors.
package alert

import (
	"context"
	"log/slog"
	"time"
)

// Notifier delivers one notification to an external channel.
type Notifier interface {
	// Name returns the channel type (e.g. "slack", "telegram").
	Name() string
	// Send delivers the notification.
	Send(ctx context.Context, subject, body string) error
}

// Fanout delivers each notification to every configured notifier,
// fire-and-forget. Alerting must never slow down or fail the sale flow, so
// delivery errors are logged and dropped.
type Fanout struct {
	notifiers []Notifier
	terminal  string
	logger    *slog.Logger
}

// NewFanout creates a fanout tagged with the terminal ID.
func NewFanout(terminal string, logger *slog.Logger, notifiers ...Notifier) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{notifiers: notifiers, terminal: terminal, logger: logger}
}

// Notify sends to all channels in the background.
func (f *Fanout) Notify(_ context.Context, subject, body string) {
	msg := "[" + f.terminal + "] " + subject + "\n" + body
	for _, n := range f.notifiers {
		go f.deliver(n, subject, msg)
	}
}

func (f *Fanout) deliver(n Notifier, subject, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := n.Send(ctx, subject, msg); err != nil {
		f.logger.Error("alert delivery failed", "channel", n.Name(), "subject", subject, "error", err)
		return
	}
	f.logger.Info("alert delivered", "channel", n.Name(), "subject", subject)
}
