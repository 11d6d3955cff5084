package alert

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackNotifier posts alerts to a Slack channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlack creates a notifier for the given bot token and channel ID.
func NewSlack(token, channel string) (*SlackNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("slack: token is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	return &SlackNotifier{api: slack.New(token), channel: channel}, nil
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, subject, body string) error {
	_, _, err := s.api.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(fmt.Sprintf("*%s*\n%s", subject, body), false),
	)
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
