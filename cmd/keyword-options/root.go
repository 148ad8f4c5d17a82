package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"twitch-keyword-watcher/config"
	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/settings"
	"twitch-keyword-watcher/storage"
)

// app хранит общее для подкоманд состояние: конфигурацию и открытое хранилище.
type app struct {
	cfg   config.Config
	store settings.Store
	close func()
}

func RootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "keyword-options",
		Short:        "Edit keyword watcher settings",
		Long:         `Reads and writes the keywords and sound settings used by keyword-watcher`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}

	rootCmd.AddCommand(ShowCmd(a))
	rootCmd.AddCommand(SaveCmd(a))
	rootCmd.AddCommand(InstallCmd(a))
	rootCmd.AddCommand(PlaySoundCmd(a))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cobra.OnFinalize(func() {
		if a.close != nil {
			a.close()
		}
		stop()
		logger.Sync()
	})
	rootCmd.SetContext(ctx)

	return rootCmd
}

func (a *app) open(ctx context.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	a.cfg, a.store, a.close = cfg, store, closeStore
	return nil
}
