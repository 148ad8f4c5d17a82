// Package bus передаёт события о совпадениях от наблюдателя к нотификатору.
//
// Доставка асинхронная и не более одного раза: публикация не ждёт обработки,
// сообщение подтверждается при любом исходе обработчика.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/model"
)

// DefaultTopic задаёт топик событий о совпадениях.
const DefaultTopic = "keyword.match"

const metaKeyType = "type"

// Bus реализует in-memory pub/sub на GoChannel из watermill.
type Bus struct {
	pubsub *gochannel.GoChannel
	topic  string
}

// New создаёт шину с буфером на buffer сообщений на подписчика.
func New(topic string, buffer int64) *Bus {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: buffer},
			zapAdapter{},
		),
		topic: topic,
	}
}

// Publish отправляет событие и сразу возвращается.
func (b *Bus) Publish(_ context.Context, e model.MatchEvent) error {
	payload, err := json.Marshal(model.NewKeywordMatchMessage(e))
	if err != nil {
		return fmt.Errorf("bus: encode event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaKeyType, model.KeywordMatchType)

	if err := b.pubsub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("bus: publish: %w", err)
	}
	return nil
}

// Subscribe запускает обработку сообщений в отдельной горутине и возвращается.
// Обработка заканчивается при отмене ctx или закрытии шины.
func (b *Bus) Subscribe(ctx context.Context, handler func(ctx context.Context, payload []byte) error) error {
	messages, err := b.pubsub.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("bus: subscribe: %w", err)
	}

	go func() {
		for msg := range messages {
			if err := handler(ctx, msg.Payload); err != nil {
				logger.Warnf("bus: сообщение %s не обработано: %v", msg.UUID, err)
			}
			msg.Ack()
		}
		logger.Debugf("bus: подписка на %s завершена", b.topic)
	}()

	return nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

type zapAdapter struct {
	fields watermill.LogFields
}

func (a zapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	logger.Errorf("watermill: %s: %v %v", msg, err, a.fields.Add(fields))
}

func (a zapAdapter) Info(msg string, fields watermill.LogFields) {
	logger.Debugf("watermill: %s %v", msg, a.fields.Add(fields))
}

func (a zapAdapter) Debug(msg string, fields watermill.LogFields) {
	logger.Debugf("watermill: %s %v", msg, a.fields.Add(fields))
}

func (a zapAdapter) Trace(string, watermill.LogFields) {}

func (a zapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return zapAdapter{fields: a.fields.Add(fields)}
}
