package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"twitch-keyword-watcher/auth"
	"twitch-keyword-watcher/bus"
	"twitch-keyword-watcher/config"
	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/notifier"
	"twitch-keyword-watcher/observer"
	"twitch-keyword-watcher/service"
	"twitch-keyword-watcher/sound"
	"twitch-keyword-watcher/storage"
	"twitch-keyword-watcher/twitch"
)

func main() {
	defer logger.Sync()

	if err := config.LoadDotEnv(); err != nil {
		logger.Fatalf("dotenv load failed: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config load failed: %v", err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cfg.Twitch.Anonymous() {
		info, err := auth.NewValidator().Check(ctx, cfg.Twitch.Username, cfg.Twitch.OAuthToken)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			logger.Fatalf("twitch token rejected: %v", err)
		case err != nil:
			logger.Warnf("twitch token check: %v", err)
		default:
			logger.Infof("twitch token for %s expires in %s", info.Login, info.ExpiresIn)
		}
	}

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("settings store: %v", err)
	}
	defer closeStore()

	events := bus.New(cfg.Notify.Topic, cfg.Notify.Buffer)
	defer events.Close()

	feed := twitch.NewFeed(cfg.Twitch, cfg.Feed.Buffer)
	player := sound.NewCommandPlayer(cfg.Sound.Command, cfg.Sound.File)
	watcher := observer.New(feed, store, player, events, cfg.Feed.RetryDelay)
	n := notifier.New(surface(cfg.Notify), cfg.Notify.IconPath)

	srv := service.New(store, watcher, n, events)
	logger.Infof("watching %d channel(s), settings backend %s", len(cfg.Twitch.Channels), cfg.Settings.Backend)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("service run failed: %v", err)
	}

	logger.Infof("shutting down...")
}

func surface(cfg config.NotifyConfig) notifier.Surface {
	switch cfg.Surface {
	case config.SurfaceSlack:
		return notifier.NewSlackSurface(cfg.SlackWebhookURL)
	case config.SurfaceLog:
		return notifier.LogSurface{}
	default:
		return notifier.NewDesktopSurface()
	}
}
