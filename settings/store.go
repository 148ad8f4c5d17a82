package settings

import (
	"context"
	"fmt"
)

// Store описывает синхронизируемое key-value хранилище настроек одной области.
type Store interface {
	// Area возвращает имя области ("sync", "local"), к которой привязано хранилище.
	Area() string
	// Get читает перечисленные ключи; отсутствующие ключи остаются nil.
	Get(ctx context.Context, fields ...Field) (Partial, error)
	// Set записывает присутствующие ключи, остальные не трогает.
	Set(ctx context.Context, p Partial) error
	// Watch подписывается на изменения. Канал закрывается при отмене ctx
	// или при потере источника уведомлений.
	Watch(ctx context.Context) (<-chan ChangeSet, error)
}

// Load читает все ключи настроек.
func Load(ctx context.Context, store Store) (Partial, error) {
	p, err := store.Get(ctx, AllFields...)
	if err != nil {
		return Partial{}, fmt.Errorf("settings: load: %w", err)
	}
	return p, nil
}

// Install дописывает значения по умолчанию для ключей, которых ещё нет.
// Существующие пользовательские значения не перезаписываются, повторный вызов ничего не меняет.
func Install(ctx context.Context, store Store) (Settings, error) {
	existing, err := Load(ctx, store)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: install: %w", err)
	}

	merged := existing.WithDefaults()
	missing := existing.Missing()
	if missing.Empty() {
		return merged, nil
	}
	if err := store.Set(ctx, missing); err != nil {
		return Settings{}, fmt.Errorf("settings: install: %w", err)
	}
	return merged, nil
}
