package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"twitch-keyword-watcher/config"
	"twitch-keyword-watcher/settings"
)

// Open создаёт хранилище настроек по конфигурации. Возвращённую функцию
// нужно вызвать при завершении, она закрывает пул соединений.
func Open(ctx context.Context, cfg config.Config) (settings.Store, func(), error) {
	switch cfg.Settings.Backend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("storage: pgxpool.New: %w", err)
		}
		store := NewPostgresStore(pool, cfg.Settings.Area, cfg.Settings.WriteTimeout)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case config.BackendFile:
		path := cfg.Settings.FilePath
		if path == "" {
			var err error
			if path, err = DefaultFilePath(); err != nil {
				return nil, nil, fmt.Errorf("storage: %w", err)
			}
		}
		return NewFileStore(path, cfg.Settings.Area), func() {}, nil
	case config.BackendMemory:
		return settings.NewMemoryStore(cfg.Settings.Area), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("storage: unknown settings backend %q", cfg.Settings.Backend)
	}
}
