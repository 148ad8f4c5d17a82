package observer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitch-keyword-watcher/model"
	"twitch-keyword-watcher/settings"
)

type stubFeed struct {
	mu       sync.Mutex
	failures int
	opens    int
	messages chan model.ChatMessage
	done     chan error
}

func newStubFeed(failures int) *stubFeed {
	return &stubFeed{
		failures: failures,
		messages: make(chan model.ChatMessage, 64),
		done:     make(chan error, 1),
	}
}

func (f *stubFeed) Open(context.Context) (<-chan model.ChatMessage, <-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.opens++
	if f.failures > 0 {
		f.failures--
		return nil, nil, errors.New("chat container not found")
	}
	return f.messages, f.done, nil
}

func (f *stubFeed) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

type stubPublisher struct {
	mu     sync.Mutex
	events []model.MatchEvent
	err    error
}

func (p *stubPublisher) Publish(_ context.Context, e model.MatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *stubPublisher) snapshot() []model.MatchEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.MatchEvent(nil), p.events...)
}

type stubPlayer struct {
	mu      sync.Mutex
	volumes []float64
	err     error
}

func (p *stubPlayer) Play(_ context.Context, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volumes = append(p.volumes, volume)
	return p.err
}

func (p *stubPlayer) snapshot() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.volumes...)
}

// blockingStore задерживает первую загрузку, пока тест не отпустит release.
type blockingStore struct {
	*settings.MemoryStore
	release chan struct{}
}

func (s *blockingStore) Get(ctx context.Context, fields ...settings.Field) (settings.Partial, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
		return settings.Partial{}, ctx.Err()
	}
	return s.MemoryStore.Get(ctx, fields...)
}

func storeWith(t *testing.T, s settings.Settings) *settings.MemoryStore {
	t.Helper()
	store := settings.NewMemoryStore(settings.AreaSync)
	require.NoError(t, store.Set(context.Background(), settings.Full(s)))
	return store
}

func start(t *testing.T, o *Observer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- o.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Error("наблюдатель не остановился")
		}
	})
}

// sendUntil повторяет сообщение, пока публикатор не получит want событий:
// изменения настроек и сообщения приходят по разным каналам.
func sendUntil(t *testing.T, feed *stubFeed, pub *stubPublisher, msg model.ChatMessage, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		if len(pub.snapshot()) >= want {
			return true
		}
		feed.messages <- msg
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestObserverRetriesUntilFeedAppears(t *testing.T) {
	feed := newStubFeed(3)
	o := New(feed, settings.NewMemoryStore(settings.AreaSync), &stubPlayer{}, &stubPublisher{}, 10*time.Millisecond)
	assert.Equal(t, WaitingForFeed, o.State())

	start(t, o)

	require.Eventually(t, func() bool { return o.State() == Observing }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 4, feed.openCount())
}

func TestObserverPublishesMatchAndPlaysSound(t *testing.T) {
	feed := newStubFeed(0)
	pub := &stubPublisher{}
	player := &stubPlayer{}
	store := storeWith(t, settings.Settings{Keywords: []string{"bar", "foo"}, SoundEnabled: true, SoundVolume: 0.3})

	start(t, New(feed, store, player, pub, time.Millisecond))

	sendUntil(t, feed, pub, model.ChatMessage{Channel: "streamer", Username: "viewer", Text: "  foobar  "}, 1)

	got := pub.snapshot()[0]
	assert.Equal(t, model.MatchEvent{Keyword: "bar", Message: "foobar", Username: "viewer", Channel: "streamer"}, got)
	require.NotEmpty(t, player.snapshot())
	assert.Equal(t, 0.3, player.snapshot()[0])
}

func TestObserverSkipsSoundWhenDisabled(t *testing.T) {
	feed := newStubFeed(0)
	pub := &stubPublisher{}
	player := &stubPlayer{}
	store := storeWith(t, settings.Settings{Keywords: []string{"gg"}, SoundEnabled: false, SoundVolume: 1})

	start(t, New(feed, store, player, pub, time.Millisecond))
	sendUntil(t, feed, pub, model.ChatMessage{Channel: "c", Username: "u", Text: "GG"}, 1)

	assert.Empty(t, player.snapshot())
}

func TestObserverSoundFailureDoesNotBlockNotification(t *testing.T) {
	feed := newStubFeed(0)
	pub := &stubPublisher{}
	player := &stubPlayer{err: errors.New("no audio device")}
	store := storeWith(t, settings.Settings{Keywords: []string{"gg"}, SoundEnabled: true, SoundVolume: 0.5})

	start(t, New(feed, store, player, pub, time.Millisecond))
	sendUntil(t, feed, pub, model.ChatMessage{Channel: "c", Username: "u", Text: "gg"}, 1)

	assert.NotEmpty(t, player.snapshot())
}

func TestObserverSubstitutesUnknownSender(t *testing.T) {
	feed := newStubFeed(0)
	pub := &stubPublisher{}
	store := storeWith(t, settings.Settings{Keywords: []string{"hi"}, SoundEnabled: false})

	start(t, New(feed, store, nil, pub, time.Millisecond))
	sendUntil(t, feed, pub, model.ChatMessage{Username: "   ", Text: "hi"}, 1)

	got := pub.snapshot()[0]
	assert.Equal(t, model.UnknownSender, got.Username)
	assert.Equal(t, model.UnknownSender, got.Channel)
}

func TestObserverIgnoresBlankMessages(t *testing.T) {
	feed := newStubFeed(0)
	pub := &stubPublisher{}
	// Пробельное слово совпало бы с любым текстом с пробелом, но пустые сообщения отсекаются раньше.
	store := storeWith(t, settings.Settings{Keywords: []string{" "}, SoundEnabled: false})

	o := New(feed, store, nil, pub, time.Millisecond)
	start(t, o)
	require.Eventually(t, func() bool { return o.State() == Observing }, 2*time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		feed.messages <- model.ChatMessage{Username: "u", Text: "   \t "}
	}
	sendUntil(t, feed, pub, model.ChatMessage{Username: "u", Text: "a b"}, 1)

	for _, e := range pub.snapshot() {
		assert.Equal(t, "a b", e.Message)
	}
}

func TestObserverFailsSafeUntilSettingsLoad(t *testing.T) {
	feed := newStubFeed(0)
	pub := &stubPublisher{}
	store := &blockingStore{
		MemoryStore: storeWith(t, settings.Settings{Keywords: []string{"gg"}, SoundEnabled: false}),
		release:     make(chan struct{}),
	}

	o := New(feed, store, nil, pub, time.Millisecond)
	start(t, o)
	require.Eventually(t, func() bool { return o.State() == Observing }, 2*time.Second, 5*time.Millisecond)

	msg := model.ChatMessage{Channel: "c", Username: "u", Text: "gg"}
	feed.messages <- msg
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, pub.snapshot())

	close(store.release)
	sendUntil(t, feed, pub, msg, 1)
}

func TestObserverAppliesKeywordChanges(t *testing.T) {
	feed := newStubFeed(0)
	pub := &stubPublisher{}
	store := storeWith(t, settings.Settings{Keywords: []string{"old"}, SoundEnabled: false})

	start(t, New(feed, store, nil, pub, time.Millisecond))
	sendUntil(t, feed, pub, model.ChatMessage{Channel: "c", Username: "u", Text: "old news"}, 1)

	keywords := []string{"new"}
	require.NoError(t, store.Set(context.Background(), settings.Partial{Keywords: &keywords}))

	sendUntil(t, feed, pub, model.ChatMessage{Channel: "c", Username: "u", Text: "new news"}, 2)
	events := pub.snapshot()
	assert.Equal(t, "new", events[len(events)-1].Keyword)
}

func TestObserverPublishFailureIsNotFatal(t *testing.T) {
	feed := newStubFeed(0)
	pub := &stubPublisher{err: errors.New("channel closed")}
	store := storeWith(t, settings.Settings{Keywords: []string{"gg"}, SoundEnabled: false})

	o := New(feed, store, nil, pub, time.Millisecond)
	start(t, o)
	sendUntil(t, feed, pub, model.ChatMessage{Text: "gg"}, 2)
	assert.Equal(t, Observing, o.State())
}

func TestObserverRediscoversClosedFeed(t *testing.T) {
	feed := newStubFeed(0)
	o := New(feed, settings.NewMemoryStore(settings.AreaSync), nil, &stubPublisher{}, time.Millisecond)
	start(t, o)

	require.Eventually(t, func() bool { return o.State() == Observing }, 2*time.Second, 5*time.Millisecond)
	feed.done <- errors.New("irc: login authentication failed")

	require.Eventually(t, func() bool { return feed.openCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return o.State() == Observing }, 2*time.Second, 5*time.Millisecond)
}
