package observer

import (
	"encoding/json"

	"twitch-keyword-watcher/settings"
)

// Cache хранит копию настроек внутри наблюдателя. Менять её может только цикл
// событий наблюдателя: seed после первой загрузки и apply на каждое
// уведомление об изменении. Чтение и запись идут в одной горутине, лок не нужен.
type Cache struct {
	current settings.Settings
	touched map[settings.Field]bool
}

// NewCache начинает с безопасных значений: пустой список слов, звук включён.
func NewCache() *Cache {
	return &Cache{
		current: settings.Defaults(),
		touched: make(map[settings.Field]bool),
	}
}

// Settings возвращает текущий снимок настроек.
func (c *Cache) Settings() settings.Settings {
	return c.current
}

// seed применяет результат первой загрузки. Поля, уже изменённые
// уведомлениями, более свежие, чем загрузка, и не перезаписываются.
func (c *Cache) seed(p settings.Partial) {
	loaded := p.WithDefaults()
	if !c.touched[settings.FieldKeywords] {
		c.current.Keywords = loaded.Keywords
	}
	if !c.touched[settings.FieldSoundEnabled] {
		c.current.SoundEnabled = loaded.SoundEnabled
	}
	if !c.touched[settings.FieldSoundVolume] {
		c.current.SoundVolume = loaded.SoundVolume
	}
}

// apply заменяет только поля из cs; остальные сохраняют прежние значения.
// Изменения из чужих областей игнорируются.
func (c *Cache) apply(cs settings.ChangeSet) bool {
	if cs.Area != settings.AreaSync {
		return false
	}

	for f, change := range cs.Changes {
		switch f {
		case settings.FieldKeywords:
			v := []string{}
			if !change.Removed() {
				if decoded, err := settings.DecodeKeywords(change.NewValue); err == nil {
					v = decoded
				}
			}
			c.current.Keywords = v
		case settings.FieldSoundEnabled:
			v := settings.DefaultSoundEnabled
			if !change.Removed() && json.Unmarshal(change.NewValue, &v) != nil {
				v = settings.DefaultSoundEnabled
			}
			c.current.SoundEnabled = v
		case settings.FieldSoundVolume:
			v := settings.DefaultSoundVolume
			if !change.Removed() && json.Unmarshal(change.NewValue, &v) != nil {
				v = settings.DefaultSoundVolume
			}
			c.current.SoundVolume = v
		default:
			continue
		}
		c.touched[f] = true
	}
	return true
}
