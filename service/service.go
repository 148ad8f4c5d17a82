package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/notifier"
	"twitch-keyword-watcher/settings"
)

// Runner описывает актор, работающий до отмены контекста.
type Runner interface {
	Run(ctx context.Context) error
}

// Service управляет двумя акторами: наблюдателем за чатом и нотификатором.
// Общего у них только шина событий и хранилище настроек.
type Service struct {
	store      settings.Store
	observer   Runner
	notifier   *notifier.Notifier
	subscriber notifier.Subscriber
}

// New собирает Service из готовых компонентов.
func New(store settings.Store, observer Runner, n *notifier.Notifier, sub notifier.Subscriber) *Service {
	return &Service{store: store, observer: observer, notifier: n, subscriber: sub}
}

// Run дописывает настройки по умолчанию, подписывает нотификатор и
// блокируется до отмены контекста. Ошибка установки настроек не фатальна:
// наблюдатель работает на безопасных значениях.
func (s *Service) Run(ctx context.Context) error {
	if installed, err := settings.Install(ctx, s.store); err != nil {
		logger.Warnf("service: не удалось записать настройки по умолчанию: %v", err)
	} else {
		logger.Infof("service: настройки области %s: ключевых слов %d, звук %t, громкость %.2f",
			s.store.Area(), len(installed.Keywords), installed.SoundEnabled, installed.SoundVolume)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Подписка до старта наблюдателя: шина не хранит сообщения без подписчиков.
	if err := s.notifier.Start(gctx, s.subscriber); err != nil {
		return fmt.Errorf("service: %w", err)
	}

	g.Go(func() error {
		err := s.observer.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("service: нотификатор отписан")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
