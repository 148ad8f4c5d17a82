package notifier

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/slack-go/slack"

	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/model"
)

// DesktopSurface показывает уведомление через notify-send (freedesktop).
type DesktopSurface struct {
	Command string

	run func(*exec.Cmd) error
}

func NewDesktopSurface() *DesktopSurface {
	return &DesktopSurface{Command: "notify-send"}
}

func (s *DesktopSurface) Show(ctx context.Context, n model.Notification) error {
	cmd := exec.CommandContext(ctx, s.Command, desktopArgs(n)...)

	run := s.run
	if run == nil {
		run = (*exec.Cmd).Run
	}
	if err := run(cmd); err != nil {
		return fmt.Errorf("desktop: %s: %w", s.Command, err)
	}
	return nil
}

func desktopArgs(n model.Notification) []string {
	args := []string{"--urgency=" + urgency(n.Priority), "--app-name=keyword-watcher"}
	if n.IconURL != "" {
		args = append(args, "--icon="+n.IconURL)
	}
	return append(args, n.Title, n.Message)
}

// urgency переводит приоритет 0..2 в уровни notify-send.
func urgency(priority int) string {
	switch {
	case priority >= 2:
		return "critical"
	case priority == 1:
		return "normal"
	default:
		return "low"
	}
}

// SlackSurface отправляет уведомление во входящий вебхук Slack.
type SlackSurface struct {
	webhookURL string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

func NewSlackSurface(webhookURL string) *SlackSurface {
	return &SlackSurface{webhookURL: webhookURL, post: slack.PostWebhookContext}
}

func (s *SlackSurface) Show(ctx context.Context, n model.Notification) error {
	header := slack.NewTextBlockObject(slack.PlainTextType, n.Title, false, false)
	body := slack.NewTextBlockObject(slack.PlainTextType, n.Message, false, false)

	msg := &slack.WebhookMessage{
		Text: n.Title + "\n" + n.Message,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewHeaderBlock(header),
			slack.NewSectionBlock(body, nil, nil),
		}},
	}

	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("slack: failed to send webhook: %w", err)
	}
	return nil
}

// LogSurface только пишет уведомление в лог.
type LogSurface struct{}

func (LogSurface) Show(_ context.Context, n model.Notification) error {
	logger.Infof("notification [%d] %s | %s", n.Priority, n.Title, n.Message)
	return nil
}
