// Package settings описывает настройки наблюдателя и хранилища, в которых они живут.
package settings

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Field задаёт имя ключа в хранилище настроек.
type Field string

const (
	FieldKeywords     Field = "keywords"
	FieldSoundEnabled Field = "soundEnabled"
	FieldSoundVolume  Field = "soundVolume"
)

// AllFields перечисляет все ключи настроек.
var AllFields = []Field{FieldKeywords, FieldSoundEnabled, FieldSoundVolume}

const (
	// AreaSync содержит настройки, изменения которых применяет наблюдатель.
	AreaSync = "sync"
	// AreaLocal хранится рядом, но наблюдателем игнорируется.
	AreaLocal = "local"
)

const (
	DefaultSoundEnabled = true
	DefaultSoundVolume  = 0.5
)

// Settings содержит полный набор пользовательских настроек.
type Settings struct {
	Keywords     []string `json:"keywords"`
	SoundEnabled bool     `json:"soundEnabled"`
	SoundVolume  float64  `json:"soundVolume" validate:"gte=0,lte=1"`
}

// Defaults возвращает настройки свежей установки.
func Defaults() Settings {
	return Settings{
		Keywords:     []string{},
		SoundEnabled: DefaultSoundEnabled,
		SoundVolume:  DefaultSoundVolume,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет, что громкость лежит в [0,1].
func Validate(s Settings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("settings: невалидные настройки: %w", err)
	}
	return nil
}

// Partial содержит частичные настройки: nil-поле означает отсутствие ключа.
type Partial struct {
	Keywords     *[]string `json:"keywords,omitempty"`
	SoundEnabled *bool     `json:"soundEnabled,omitempty"`
	SoundVolume  *float64  `json:"soundVolume,omitempty"`
}

// Full превращает Settings в Partial со всеми ключами.
func Full(s Settings) Partial {
	keywords := append([]string{}, s.Keywords...)
	return Partial{
		Keywords:     &keywords,
		SoundEnabled: &s.SoundEnabled,
		SoundVolume:  &s.SoundVolume,
	}
}

// WithDefaults заполняет отсутствующие ключи значениями по умолчанию.
func (p Partial) WithDefaults() Settings {
	s := Defaults()
	if p.Keywords != nil {
		s.Keywords = append([]string{}, (*p.Keywords)...)
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.SoundVolume != nil {
		s.SoundVolume = *p.SoundVolume
	}
	return s
}

// Missing возвращает значения по умолчанию только для ключей, которых нет в p.
func (p Partial) Missing() Partial {
	d := Defaults()
	var out Partial
	if p.Keywords == nil {
		out.Keywords = &d.Keywords
	}
	if p.SoundEnabled == nil {
		out.SoundEnabled = &d.SoundEnabled
	}
	if p.SoundVolume == nil {
		out.SoundVolume = &d.SoundVolume
	}
	return out
}

// Empty сообщает, что в p нет ни одного ключа.
func (p Partial) Empty() bool {
	return p.Keywords == nil && p.SoundEnabled == nil && p.SoundVolume == nil
}

// Only оставляет в p только перечисленные ключи.
func (p Partial) Only(fields ...Field) Partial {
	var out Partial
	for _, f := range fields {
		switch f {
		case FieldKeywords:
			out.Keywords = p.Keywords
		case FieldSoundEnabled:
			out.SoundEnabled = p.SoundEnabled
		case FieldSoundVolume:
			out.SoundVolume = p.SoundVolume
		}
	}
	return out
}

// Values кодирует присутствующие ключи в JSON-значения хранилища.
func (p Partial) Values() (map[Field]json.RawMessage, error) {
	out := make(map[Field]json.RawMessage, len(AllFields))
	put := func(f Field, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("settings: encode %s: %w", f, err)
		}
		out[f] = raw
		return nil
	}

	if p.Keywords != nil {
		if err := put(FieldKeywords, *p.Keywords); err != nil {
			return nil, err
		}
	}
	if p.SoundEnabled != nil {
		if err := put(FieldSoundEnabled, *p.SoundEnabled); err != nil {
			return nil, err
		}
	}
	if p.SoundVolume != nil {
		if err := put(FieldSoundVolume, *p.SoundVolume); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FromValues собирает Partial из JSON-значений хранилища.
// Неизвестные ключи пропускаются, значения неверного типа дают ошибку.
func FromValues(values map[Field]json.RawMessage) (Partial, error) {
	var p Partial
	for f, raw := range values {
		if isNull(raw) {
			continue
		}
		var err error
		switch f {
		case FieldKeywords:
			var v []string
			v, err = DecodeKeywords(raw)
			p.Keywords = &v
		case FieldSoundEnabled:
			var v bool
			err = json.Unmarshal(raw, &v)
			p.SoundEnabled = &v
		case FieldSoundVolume:
			var v float64
			err = json.Unmarshal(raw, &v)
			p.SoundVolume = &v
		default:
			continue
		}
		if err != nil {
			return Partial{}, fmt.Errorf("settings: decode %s: %w", f, err)
		}
	}
	return p, nil
}

// DecodeKeywords разбирает список ключевых слов. Элементы null отбрасываются:
// пустая строка совпала бы с любым сообщением.
func DecodeKeywords(raw json.RawMessage) ([]string, error) {
	var items []*string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return lo.FilterMap(items, func(item *string, _ int) (string, bool) {
		if item == nil || *item == "" {
			return "", false
		}
		return *item, true
	}), nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Change несёт новое значение одного ключа. Пустое или null значение означает удаление ключа.
type Change struct {
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// Removed сообщает, что ключ был удалён из хранилища.
func (c Change) Removed() bool {
	return isNull(c.NewValue)
}

// ChangeSet описывает одно уведомление об изменении, ключи сгруппированы по области.
type ChangeSet struct {
	Area    string           `json:"area"`
	Changes map[Field]Change `json:"changes"`
}
