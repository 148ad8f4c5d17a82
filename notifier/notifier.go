// Package notifier показывает системные уведомления о найденных ключевых словах.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/model"
)

const (
	notificationType     = "basic"
	notificationPriority = 2
)

// Surface показывает уведомление пользователю.
type Surface interface {
	Show(ctx context.Context, n model.Notification) error
}

// Subscriber доставляет тела сообщений из шины.
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, payload []byte) error) error
}

// Notifier принимает сообщения о совпадениях и показывает уведомления.
type Notifier struct {
	surface Surface
	iconURL string
}

func New(surface Surface, iconURL string) *Notifier {
	return &Notifier{surface: surface, iconURL: iconURL}
}

// Start подписывается на шину и возвращается сразу.
func (n *Notifier) Start(ctx context.Context, sub Subscriber) error {
	if err := sub.Subscribe(ctx, n.HandlePayload); err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	return nil
}

// HandlePayload пропускает всё, что не является KEYWORD_MATCH. Ошибка показа
// только логируется: повторной доставки не бывает.
func (n *Notifier) HandlePayload(ctx context.Context, payload []byte) error {
	var msg model.KeywordMatchMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		logger.Debugf("notifier: пропуск нераспознанного сообщения: %v", err)
		return nil
	}
	if msg.Type != model.KeywordMatchType {
		return nil
	}

	notification := n.Build(msg.Event())
	if err := n.surface.Show(ctx, notification); err != nil {
		logger.Warnf("notifier: уведомление о %q не показано: %v", msg.Keyword, err)
	}
	return nil
}

// Build собирает уведомление: заголовок из слова и канала, текст из автора и сообщения.
func (n *Notifier) Build(e model.MatchEvent) model.Notification {
	return model.Notification{
		Type:     notificationType,
		IconURL:  n.iconURL,
		Title:    fmt.Sprintf("Keyword \"%s\" in %s's chat", e.Keyword, e.Channel),
		Message:  fmt.Sprintf("%s: %s", e.Username, e.Message),
		Priority: notificationPriority,
	}
}
