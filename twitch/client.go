package twitch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"

	"twitch-keyword-watcher/config"
	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/model"
)

// ErrClosed возвращается в done, если клиент отключился без ошибки.
var ErrClosed = errors.New("twitch: соединение закрыто")

// ircClient повторяет используемую часть go-twitch-irc.
type ircClient interface {
	OnPrivateMessage(func(twitchirc.PrivateMessage))
	OnConnect(func())
	OnReconnectMessage(func(twitchirc.ReconnectMessage))
	OnNoticeMessage(func(twitchirc.NoticeMessage))
	Join(channels ...string)
	Connect() error
	Disconnect() error
}

// Feed открывает ленту сообщений подключением к Twitch IRC.
// Каждый Open создаёт новый клиент; go-twitch-irc сам переподключается
// при обрывах, поэтому done срабатывает только когда клиент сдался.
type Feed struct {
	cfg       config.TwitchConfig
	buffer    int
	newClient func() ircClient
}

// NewFeed создаёт ленту. Без логина и токена клиент подключается анонимно,
// только на чтение.
func NewFeed(cfg config.TwitchConfig, buffer int) *Feed {
	return &Feed{
		cfg:    cfg,
		buffer: buffer,
		newClient: func() ircClient {
			if cfg.Anonymous() {
				return twitchirc.NewAnonymousClient()
			}
			return twitchirc.NewClient(cfg.Username, cfg.OAuthToken)
		},
	}
}

// Open блокируется до успешного подключения и возвращает ошибку, если
// подключиться не удалось.
func (f *Feed) Open(ctx context.Context) (<-chan model.ChatMessage, <-chan error, error) {
	client := f.newClient()
	messages := make(chan model.ChatMessage, f.buffer)
	connected := make(chan struct{})

	client.OnPrivateMessage(func(m twitchirc.PrivateMessage) {
		// Колбэки вызываются последовательно из читающей горутины клиента,
		// блокирующая отправка сохраняет порядок сообщений.
		select {
		case messages <- toChatMessage(m):
		case <-ctx.Done():
		}
	})

	client.OnConnect(func() {
		logger.Infof("twitch: подключено, подписка на каналы: %v", f.cfg.Channels)
		for _, ch := range f.cfg.Channels {
			if ch == "" {
				continue
			}
			client.Join(ch)
		}
		select {
		case <-connected:
		default:
			close(connected)
		}
	})

	client.OnReconnectMessage(func(message twitchirc.ReconnectMessage) {
		logger.Infof("twitch: сервер запросил RECONNECT: %+v", message)
	})

	client.OnNoticeMessage(func(msg twitchirc.NoticeMessage) {
		logger.Debugf("twitch: NOTICE #%s [%s]: %s", normalizeChannel(msg.Channel), msg.MsgID, msg.Message)
	})

	errCh := make(chan error, 1)
	go func() {
		err := client.Connect()
		if err == nil || errors.Is(err, twitchirc.ErrClientDisconnected) {
			err = ErrClosed
		}
		errCh <- err
	}()

	select {
	case <-connected:
	case err := <-errCh:
		return nil, nil, fmt.Errorf("twitch: connect: %w", err)
	case <-ctx.Done():
		_ = client.Disconnect()
		return nil, nil, ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		select {
		case err := <-errCh:
			done <- err
		case <-ctx.Done():
			_ = client.Disconnect()
			<-errCh
		}
	}()

	return messages, done, nil
}

func toChatMessage(m twitchirc.PrivateMessage) model.ChatMessage {
	sentAt := m.Time
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	username := strings.TrimSpace(m.User.DisplayName)
	if username == "" {
		username = strings.TrimSpace(m.User.Name)
	}

	return model.ChatMessage{
		ID:       m.ID,
		Channel:  normalizeChannel(m.Channel),
		Username: username,
		Text:     m.Message,
		SentAt:   sentAt,
	}
}

func normalizeChannel(ch string) string {
	return strings.TrimPrefix(strings.TrimSpace(ch), "#")
}
