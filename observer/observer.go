// Package observer следит за живой лентой чата и сообщает о сообщениях с ключевыми словами.
package observer

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/matcher"
	"twitch-keyword-watcher/model"
	"twitch-keyword-watcher/settings"
	"twitch-keyword-watcher/sound"
)

// DefaultRetryDelay задаёт паузу между попытками открыть ленту.
const DefaultRetryDelay = time.Second

// State описывает состояние наблюдателя.
type State int32

const (
	WaitingForFeed State = iota
	Observing
)

func (s State) String() string {
	switch s {
	case WaitingForFeed:
		return "waiting_for_feed"
	case Observing:
		return "observing"
	default:
		return "unknown"
	}
}

// Feed отдаёт сообщения чата. Open возвращает ошибку, пока лента недоступна.
// Канал done получает значение, когда лента закончилась; messages не закрывается.
type Feed interface {
	Open(ctx context.Context) (messages <-chan model.ChatMessage, done <-chan error, err error)
}

// Publisher передаёт событие нотификатору без ожидания ответа.
type Publisher interface {
	Publish(ctx context.Context, e model.MatchEvent) error
}

type openedFeed struct {
	messages <-chan model.ChatMessage
	done     <-chan error
}

// Observer держит ленту, кэш настроек и матчер в одной горутине.
type Observer struct {
	feed       Feed
	store      settings.Store
	player     sound.Player
	publisher  Publisher
	cache      *Cache
	retryDelay time.Duration
	state      atomic.Int32
}

// New собирает наблюдателя. retryDelay <= 0 заменяется на DefaultRetryDelay.
func New(feed Feed, store settings.Store, player sound.Player, publisher Publisher, retryDelay time.Duration) *Observer {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Observer{
		feed:       feed,
		store:      store,
		player:     player,
		publisher:  publisher,
		cache:      NewCache(),
		retryDelay: retryDelay,
	}
}

// State можно вызывать из любой горутины.
func (o *Observer) State() State {
	return State(o.state.Load())
}

// Run блокируется до отмены ctx. Ошибки ленты, настроек, звука и публикации
// не прерывают работу: они логируются, а наблюдатель продолжает с последними
// известными настройками.
func (o *Observer) Run(ctx context.Context) error {
	// Подписка раньше загрузки: изменение, пришедшее во время загрузки, не потеряется.
	changes, err := o.store.Watch(ctx)
	if err != nil {
		logger.Warnf("observer: изменения настроек недоступны, работаем на загруженных: %v", err)
		changes = nil
	}

	loaded := o.loadSettings(ctx)
	ready := make(chan openedFeed)
	go o.discover(ctx, ready)

	var (
		messages <-chan model.ChatMessage
		done     <-chan error
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case p, ok := <-loaded:
			loaded = nil
			if ok {
				o.cache.seed(p)
				logger.Infof("observer: настройки загружены, ключевых слов: %d", len(o.cache.Settings().Keywords))
			}

		case cs, ok := <-changes:
			if !ok {
				changes = nil
				logger.Warnf("observer: поток изменений настроек закрыт, остаёмся на последних значениях")
				continue
			}
			if o.cache.apply(cs) {
				logger.Debugf("observer: применены изменения настроек: %d полей", len(cs.Changes))
			}

		case f := <-ready:
			messages, done = f.messages, f.done
			o.state.Store(int32(Observing))
			logger.Infof("observer: лента найдена, наблюдение начато")

		case msg := <-messages:
			o.handle(ctx, msg)

		case err := <-done:
			o.drain(ctx, messages)
			messages, done = nil, nil
			o.state.Store(int32(WaitingForFeed))
			logger.Warnf("observer: лента закрылась (%v), ищем заново", err)
			go o.discover(ctx, ready)
		}
	}
}

// loadSettings запускает единственную асинхронную загрузку. При ошибке канал
// закрывается без значения, и кэш остаётся на безопасных значениях.
func (o *Observer) loadSettings(ctx context.Context) <-chan settings.Partial {
	out := make(chan settings.Partial, 1)
	go func() {
		defer close(out)
		p, err := settings.Load(ctx, o.store)
		if err != nil {
			if ctx.Err() == nil {
				logger.Errorf("observer: %v", err)
			}
			return
		}
		out <- p
	}()
	return out
}

// discover открывает ленту, повторяя попытку через retryDelay, пока не получится.
// Отсутствие ленты не ошибка: страница или соединение просто ещё не готовы.
func (o *Observer) discover(ctx context.Context, ready chan<- openedFeed) {
	for {
		messages, done, err := o.feed.Open(ctx)
		if err == nil {
			select {
			case ready <- openedFeed{messages: messages, done: done}:
			case <-ctx.Done():
			}
			return
		}

		logger.Debugf("observer: лента недоступна, повтор через %s: %v", o.retryDelay, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(o.retryDelay):
		}
	}
}

func (o *Observer) drain(ctx context.Context, messages <-chan model.ChatMessage) {
	for {
		select {
		case msg := <-messages:
			o.handle(ctx, msg)
		default:
			return
		}
	}
}

func (o *Observer) handle(ctx context.Context, msg model.ChatMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	current := o.cache.Settings()
	keyword, ok := matcher.FindMatch(text, current.Keywords)
	if !ok {
		return
	}

	event := model.MatchEvent{
		Keyword:  keyword,
		Message:  text,
		Username: orUnknown(msg.Username),
		Channel:  orUnknown(msg.Channel),
	}

	if current.SoundEnabled && o.player != nil {
		if err := o.player.Play(ctx, current.SoundVolume); err != nil {
			logger.Warnf("observer: не удалось проиграть звук: %v", err)
		}
	}

	if err := o.publisher.Publish(ctx, event); err != nil {
		logger.Warnf("observer: событие для #%s потеряно: %v", event.Channel, err)
	}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return model.UnknownSender
	}
	return s
}
