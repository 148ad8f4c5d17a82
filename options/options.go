// Package options переводит пользовательский ввод настроек в записи хранилища.
package options

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"

	"twitch-keyword-watcher/settings"
)

const (
	StatusSaved     = "Settings saved!"
	StatusSaveError = "Error saving settings"
)

// Form хранит настройки в том виде, в каком их редактирует пользователь:
// ключевые слова по одному на строку.
type Form struct {
	KeywordsText string
	SoundEnabled bool
	SoundVolume  float64
}

// ParseKeywords режет текст по строкам, обрезает пробелы и выкидывает пустые строки.
func ParseKeywords(text string) []string {
	return lo.FilterMap(strings.Split(text, "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		return line, line != ""
	})
}

// FormFrom заполняет форму из хранилища; отсутствующие ключи берут значения по умолчанию.
func FormFrom(p settings.Partial) Form {
	s := p.WithDefaults()
	return Form{
		KeywordsText: strings.Join(s.Keywords, "\n"),
		SoundEnabled: s.SoundEnabled,
		SoundVolume:  s.SoundVolume,
	}
}

// Settings превращает форму в проверенные настройки.
func (f Form) Settings() (settings.Settings, error) {
	s := settings.Settings{
		Keywords:     ParseKeywords(f.KeywordsText),
		SoundEnabled: f.SoundEnabled,
		SoundVolume:  f.SoundVolume,
	}
	if err := settings.Validate(s); err != nil {
		return settings.Settings{}, err
	}
	return s, nil
}

// VolumeLabel показывает громкость в процентах, как ползунок в окне настроек.
func VolumeLabel(volume float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(volume*100)))
}

// Load читает настройки для редактирования.
func Load(ctx context.Context, store settings.Store) (Form, error) {
	p, err := settings.Load(ctx, store)
	if err != nil {
		return Form{}, err
	}
	return FormFrom(p), nil
}

// Save записывает все три ключа целиком. Одинаковый ввод даёт одинаковое
// содержимое хранилища, сколько бы раз его ни сохраняли.
func Save(ctx context.Context, store settings.Store, f Form) (settings.Settings, error) {
	s, err := f.Settings()
	if err != nil {
		return settings.Settings{}, err
	}
	if err := store.Set(ctx, settings.Full(s)); err != nil {
		return settings.Settings{}, fmt.Errorf("options: save: %w", err)
	}
	return s, nil
}
