package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendMemory   = "memory"

	SurfaceDesktop = "desktop"
	SurfaceSlack   = "slack"
	SurfaceLog     = "log"
)

// Config агрегирует значения конфигурации из переменных окружения.
type Config struct {
	Twitch   TwitchConfig
	Settings SettingsConfig
	Postgres PostgresConfig
	Feed     FeedConfig
	Sound    SoundConfig
	Notify   NotifyConfig
	LogLevel string
}

// TwitchConfig содержит учётные данные и каналы для Twitch IRC клиента.
type TwitchConfig struct {
	Username   string
	OAuthToken string
	Channels   []string
}

// Anonymous сообщает, что логин не задан и клиент читает чат анонимно.
func (t TwitchConfig) Anonymous() bool {
	return t.Username == "" && t.OAuthToken == ""
}

// SettingsConfig выбирает хранилище настроек.
type SettingsConfig struct {
	Backend      string
	Area         string
	FilePath     string
	WriteTimeout time.Duration
}

// PostgresConfig хранит параметры подключения к пулу базы данных.
type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
}

// DSN собирает строку подключения для pgx/pgxpool.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

// FeedConfig задаёт паузу между попытками открыть ленту и размер буфера сообщений.
type FeedConfig struct {
	RetryDelay time.Duration
	Buffer     int
}

// SoundConfig описывает внешний плеер звука уведомления.
type SoundConfig struct {
	Command string
	File    string
}

// NotifyConfig выбирает, куда показывать уведомления.
type NotifyConfig struct {
	Surface         string
	IconPath        string
	SlackWebhookURL string
	Topic           string
	Buffer          int64
}

// LoadDotEnv подгружает .env, если он есть. Уже заданные переменные не перезаписываются.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: %s: %w", p, err)
		}
	}
	return nil
}

// Load читает переменные окружения и возвращает валидированную Config.
func Load() (Config, error) {
	cfg, err := read()
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadSettings проверяет только доступ к хранилищу настроек: утилите
// настроек не нужны каналы и уведомления.
func LoadSettings() (Config, error) {
	cfg, err := read()
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validateSettings(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func read() (Config, error) {
	retryDelay, err := durationEnv("FEED_RETRY_DELAY", time.Second)
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := durationEnv("SETTINGS_WRITE_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	feedBuffer, err := intEnv("FEED_BUFFER", 256)
	if err != nil {
		return Config{}, err
	}
	notifyBuffer, err := intEnv("NOTIFY_BUFFER", 64)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Twitch: TwitchConfig{
			Username:   env("TWITCH_USERNAME", ""),
			OAuthToken: env("TWITCH_OAUTH_TOKEN", ""),
			Channels:   splitAndTrim(os.Getenv("TWITCH_CHANNELS")),
		},
		Settings: SettingsConfig{
			Backend:      strings.ToLower(env("SETTINGS_BACKEND", BackendPostgres)),
			Area:         env("SETTINGS_AREA", "sync"),
			FilePath:     env("SETTINGS_FILE", ""),
			WriteTimeout: writeTimeout,
		},
		Postgres: PostgresConfig{
			Host:     env("POSTGRES_HOST", ""),
			Port:     env("POSTGRES_PORT", ""),
			DB:       env("POSTGRES_DB", ""),
			User:     env("POSTGRES_USER", ""),
			Password: env("POSTGRES_PASSWORD", ""),
		},
		Feed: FeedConfig{
			RetryDelay: retryDelay,
			Buffer:     feedBuffer,
		},
		Sound: SoundConfig{
			Command: env("SOUND_COMMAND", "paplay"),
			File:    env("SOUND_FILE", "sounds/notification.mp3"),
		},
		Notify: NotifyConfig{
			Surface:         strings.ToLower(env("NOTIFY_SURFACE", SurfaceDesktop)),
			IconPath:        env("NOTIFY_ICON", "icons/icon-128.png"),
			SlackWebhookURL: env("SLACK_WEBHOOK_URL", ""),
			Topic:           env("NOTIFY_TOPIC", "keyword.match"),
			Buffer:          int64(notifyBuffer),
		},
		LogLevel: strings.ToLower(env("LOG_LEVEL", "info")),
	}, nil
}

func (c Config) validate() error {
	if len(c.Twitch.Channels) == 0 {
		return fmt.Errorf("требуется TWITCH_CHANNELS")
	}
	if (c.Twitch.Username == "") != (c.Twitch.OAuthToken == "") {
		return fmt.Errorf("TWITCH_USERNAME и TWITCH_OAUTH_TOKEN задаются вместе")
	}

	if err := c.validateSettings(); err != nil {
		return err
	}

	if c.Feed.RetryDelay <= 0 {
		return fmt.Errorf("FEED_RETRY_DELAY должен быть больше нуля")
	}
	if c.Feed.Buffer <= 0 {
		return fmt.Errorf("FEED_BUFFER должен быть больше нуля")
	}

	switch c.Notify.Surface {
	case SurfaceDesktop, SurfaceLog:
	case SurfaceSlack:
		if c.Notify.SlackWebhookURL == "" {
			return fmt.Errorf("требуется SLACK_WEBHOOK_URL")
		}
	default:
		return fmt.Errorf("неизвестный NOTIFY_SURFACE %q", c.Notify.Surface)
	}
	if c.Notify.Buffer <= 0 {
		return fmt.Errorf("NOTIFY_BUFFER должен быть больше нуля")
	}

	return nil
}

func (c Config) validateSettings() error {
	switch c.Settings.Backend {
	case BackendPostgres:
		if err := c.Postgres.validate(); err != nil {
			return err
		}
	case BackendFile, BackendMemory:
	default:
		return fmt.Errorf("неизвестный SETTINGS_BACKEND %q", c.Settings.Backend)
	}
	if c.Settings.Area == "" {
		return fmt.Errorf("требуется SETTINGS_AREA")
	}
	if c.Settings.WriteTimeout <= 0 {
		return fmt.Errorf("SETTINGS_WRITE_TIMEOUT должен быть больше нуля")
	}
	return nil
}

func (p PostgresConfig) validate() error {
	if p.Host == "" {
		return fmt.Errorf("требуется POSTGRES_HOST")
	}
	if p.Port == "" {
		return fmt.Errorf("требуется POSTGRES_PORT")
	}
	if p.DB == "" {
		return fmt.Errorf("требуется POSTGRES_DB")
	}
	if p.User == "" {
		return fmt.Errorf("требуется POSTGRES_USER")
	}
	if p.Password == "" {
		return fmt.Errorf("требуется POSTGRES_PASSWORD")
	}
	return nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "#"))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
