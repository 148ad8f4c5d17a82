package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/settings"
)

// SETTINGS_FILE задаёт путь по умолчанию относительно каталога конфигурации пользователя,
// чтобы наблюдатель и утилита настроек видели один файл из любого рабочего каталога.
const SETTINGS_FILE = "keyword-watcher/settings.json"

// DefaultFilePath возвращает путь к файлу настроек внутри os.UserConfigDir.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("settings file: %w", err)
	}
	return filepath.Join(dir, SETTINGS_FILE), nil
}

// FileStore хранит настройки области в JSON файле и следит за ним через fsnotify.
// Изменения, сделанные другим процессом, доходят до подписчиков так же, как свои.
type FileStore struct {
	Path string

	area string
	mu   sync.Mutex
}

// NewFileStore создаёт файловое хранилище; пустой path означает путь по умолчанию.
func NewFileStore(path, area string) *FileStore {
	return &FileStore{Path: path, area: area}
}

func (store *FileStore) filePath() string {
	if strings.TrimSpace(store.Path) == "" {
		if path, err := DefaultFilePath(); err == nil {
			return path
		}
		return SETTINGS_FILE
	}
	return store.Path
}

func (store *FileStore) Area() string { return store.area }

func (store *FileStore) Get(ctx context.Context, fields ...settings.Field) (settings.Partial, error) {
	if err := ctx.Err(); err != nil {
		return settings.Partial{}, err
	}

	values, err := store.read()
	if err != nil {
		return settings.Partial{}, err
	}

	p, err := settings.FromValues(values)
	if err != nil {
		return settings.Partial{}, fmt.Errorf("load settings: %w", err)
	}
	return p.Only(fields...), nil
}

func (store *FileStore) Set(ctx context.Context, p settings.Partial) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	values, err := p.Values()
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	current, err := store.read()
	if err != nil {
		return err
	}

	changed := false
	for f, raw := range values {
		if old, ok := current[f]; ok && jsonEqual(old, raw) {
			continue
		}
		current[f] = raw
		changed = true
	}
	if !changed {
		return nil
	}

	return store.write(current)
}

// Watch следит за каталогом файла, а не за самим файлом: запись идёт через
// rename, и наблюдение за inode потерялось бы после первой же записи.
func (store *FileStore) Watch(ctx context.Context) (<-chan settings.ChangeSet, error) {
	path := store.filePath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("watch settings: create dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch settings: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch settings: add %s: %w", dir, err)
	}

	last, err := store.read()
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan settings.ChangeSet, 16)
	go func() {
		defer close(out)
		defer watcher.Close()

		name := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("storage: ошибка наблюдения за %s: %v", name, err)
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}

				current, err := store.read()
				if err != nil {
					logger.Warnf("storage: не удалось перечитать %s: %v", name, err)
					continue
				}

				changes := diffValues(last, current)
				last = current
				if len(changes) == 0 {
					continue
				}

				select {
				case out <- settings.ChangeSet{Area: store.area, Changes: changes}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// read возвращает пустой набор, если файла ещё нет.
func (store *FileStore) read() (map[settings.Field]json.RawMessage, error) {
	data, err := os.ReadFile(store.filePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[settings.Field]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("load settings: read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[settings.Field]json.RawMessage{}, nil
	}

	values := map[settings.Field]json.RawMessage{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("load settings: decode json: %w", err)
	}
	return values, nil
}

func (store *FileStore) write(values map[settings.Field]json.RawMessage) error {
	path := store.filePath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save settings: create dir: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("save settings: encode json: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("save settings: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save settings: write file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save settings: chmod file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save settings: close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save settings: rename file: %w", err)
	}

	return nil
}

func diffValues(before, after map[settings.Field]json.RawMessage) map[settings.Field]settings.Change {
	changes := make(map[settings.Field]settings.Change)
	for f, raw := range after {
		if old, ok := before[f]; ok && jsonEqual(old, raw) {
			continue
		}
		changes[f] = settings.Change{NewValue: raw}
	}
	for f := range before {
		if _, ok := after[f]; !ok {
			changes[f] = settings.Change{}
		}
	}
	return changes
}

func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
