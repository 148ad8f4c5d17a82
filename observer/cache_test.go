package observer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"twitch-keyword-watcher/matcher"
	"twitch-keyword-watcher/settings"
)

func change(raw string) settings.Change {
	if raw == "" {
		return settings.Change{}
	}
	return settings.Change{NewValue: json.RawMessage(raw)}
}

func TestCacheStartsFailSafe(t *testing.T) {
	c := NewCache()
	assert.Equal(t, settings.Settings{Keywords: []string{}, SoundEnabled: true, SoundVolume: 0.5}, c.Settings())
}

func TestCacheVolumeChangeKeepsOtherFields(t *testing.T) {
	c := NewCache()
	keywords := []string{"gg"}
	off := false
	c.seed(settings.Partial{Keywords: &keywords, SoundEnabled: &off})

	c.apply(settings.ChangeSet{
		Area:    settings.AreaSync,
		Changes: map[settings.Field]settings.Change{settings.FieldSoundVolume: change("0.9")},
	})

	assert.Equal(t, settings.Settings{Keywords: []string{"gg"}, SoundEnabled: false, SoundVolume: 0.9}, c.Settings())
}

func TestCacheIgnoresOtherAreas(t *testing.T) {
	c := NewCache()
	applied := c.apply(settings.ChangeSet{
		Area:    settings.AreaLocal,
		Changes: map[settings.Field]settings.Change{settings.FieldKeywords: change(`["x"]`)},
	})

	assert.False(t, applied)
	assert.Empty(t, c.Settings().Keywords)
}

func TestCacheInvalidValuesFallBackToDefaults(t *testing.T) {
	c := NewCache()
	keywords := []string{"gg"}
	off, volume := false, 0.1
	c.seed(settings.Partial{Keywords: &keywords, SoundEnabled: &off, SoundVolume: &volume})

	c.apply(settings.ChangeSet{
		Area: settings.AreaSync,
		Changes: map[settings.Field]settings.Change{
			settings.FieldKeywords:     change(`"not a list"`),
			settings.FieldSoundEnabled: change(""),
			settings.FieldSoundVolume:  change(`null`),
		},
	})

	assert.Equal(t, settings.Defaults(), c.Settings())
}

func TestCacheSeedDoesNotOverrideNewerChanges(t *testing.T) {
	c := NewCache()
	c.apply(settings.ChangeSet{
		Area:    settings.AreaSync,
		Changes: map[settings.Field]settings.Change{settings.FieldKeywords: change(`["fresh"]`)},
	})

	stale := []string{"stale"}
	volume := 0.2
	c.seed(settings.Partial{Keywords: &stale, SoundVolume: &volume})

	assert.Equal(t, settings.Settings{Keywords: []string{"fresh"}, SoundEnabled: true, SoundVolume: 0.2}, c.Settings())
}

func TestCacheSeedFillsDefaults(t *testing.T) {
	c := NewCache()
	c.seed(settings.Partial{})
	assert.Equal(t, settings.Defaults(), c.Settings())
}

func TestCacheDropsNullKeywordElements(t *testing.T) {
	c := NewCache()
	c.apply(settings.ChangeSet{
		Area:    settings.AreaSync,
		Changes: map[settings.Field]settings.Change{settings.FieldKeywords: change(`["gg", null]`)},
	})

	assert.Equal(t, []string{"gg"}, c.Settings().Keywords)
	_, ok := matcher.FindMatch("hello there", c.Settings().Keywords)
	assert.False(t, ok)
}
