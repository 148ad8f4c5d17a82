package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/settings"
)

// SettingsChannel задаёт канал LISTEN/NOTIFY, в который триггер пишет изменения настроек.
const SettingsChannel = "extension_settings_changed"

const schema = `
create table if not exists extension_settings (
  area       text        not null,
  key        text        not null,
  value      jsonb       not null,
  updated_at timestamptz not null default now(),
  primary key (area, key)
);

create or replace function notify_extension_settings() returns trigger as $$
begin
  if tg_op = 'DELETE' then
    perform pg_notify('extension_settings_changed', json_build_object(
      'area', old.area,
      'changes', json_build_object(old.key, json_build_object('newValue', null))
    )::text);
    return old;
  end if;

  perform pg_notify('extension_settings_changed', json_build_object(
    'area', new.area,
    'changes', json_build_object(new.key, json_build_object('newValue', new.value))
  )::text);
  return new;
end;
$$ language plpgsql;

drop trigger if exists extension_settings_notify on extension_settings;
create trigger extension_settings_notify
  after insert or update or delete on extension_settings
  for each row execute function notify_extension_settings();
`

// Обновление без реального изменения значения не трогает строку, поэтому
// триггер и уведомление срабатывают только на настоящие изменения.
const upsertQuery = `
insert into extension_settings (area, key, value)
values ($1, $2, $3)
on conflict (area, key) do update
  set value = excluded.value, updated_at = now()
  where extension_settings.value is distinct from excluded.value;`

const selectQuery = `
select key, value
from extension_settings
where area = $1 and key = any($2);`

const defaultWriteTimeout = 5 * time.Second

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore хранит настройки области в таблице extension_settings и
// получает изменения через LISTEN/NOTIFY.
type PostgresStore struct {
	db           db
	pool         *pgxpool.Pool
	area         string
	writeTimeout time.Duration
}

// NewPostgresStore создаёт хранилище поверх пула соединений.
func NewPostgresStore(pool *pgxpool.Pool, area string, writeTimeout time.Duration) *PostgresStore {
	s := newPostgresStore(pool, area, writeTimeout)
	s.pool = pool
	return s
}

func newPostgresStore(db db, area string, writeTimeout time.Duration) *PostgresStore {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &PostgresStore{db: db, area: area, writeTimeout: writeTimeout}
}

// Migrate создаёт таблицу и триггер уведомлений, если их ещё нет.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Area() string { return s.area }

func (s *PostgresStore) Get(ctx context.Context, fields ...settings.Field) (settings.Partial, error) {
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, string(f))
	}

	rows, err := s.db.Query(ctx, selectQuery, s.area, keys)
	if err != nil {
		return settings.Partial{}, fmt.Errorf("storage: select settings: %w", err)
	}
	defer rows.Close()

	values := make(map[settings.Field]json.RawMessage, len(fields))
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return settings.Partial{}, fmt.Errorf("storage: scan setting: %w", err)
		}
		values[settings.Field(key)] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return settings.Partial{}, fmt.Errorf("storage: select settings: %w", err)
	}

	return settings.FromValues(values)
}

// Set пишет все присутствующие ключи одним батчем.
func (s *PostgresStore) Set(ctx context.Context, p settings.Partial) error {
	values, err := p.Values()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, f := range settings.AllFields {
		raw, ok := values[f]
		if !ok {
			continue
		}
		batch.Queue(upsertQuery, s.area, string(f), string(raw))
	}
	if batch.Len() == 0 {
		return nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	br := s.db.SendBatch(dbCtx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("storage: upsert settings: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("storage: upsert settings: %w", err)
	}
	return nil
}

// Watch занимает отдельное соединение под LISTEN. Соединение не возвращается
// в пул: после отписки оно закрывается.
func (s *PostgresStore) Watch(ctx context.Context) (<-chan settings.ChangeSet, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("storage: watch: пул соединений не задан")
	}

	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: watch: acquire: %w", err)
	}
	conn := pooled.Hijack()

	if _, err := conn.Exec(ctx, "listen "+SettingsChannel); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("storage: watch: listen: %w", err)
	}

	out := make(chan settings.ChangeSet, 16)
	go func() {
		defer close(out)
		defer conn.Close(context.Background())

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Errorf("storage: ожидание уведомлений прервано: %v", err)
				}
				return
			}

			cs, err := decodeNotification(n.Payload)
			if err != nil {
				logger.Warnf("storage: пропуск уведомления: %v", err)
				continue
			}

			select {
			case out <- cs:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func decodeNotification(payload string) (settings.ChangeSet, error) {
	var cs settings.ChangeSet
	if err := json.Unmarshal([]byte(payload), &cs); err != nil {
		return settings.ChangeSet{}, fmt.Errorf("decode payload: %w", err)
	}
	if cs.Area == "" {
		return settings.ChangeSet{}, fmt.Errorf("decode payload: пустая область")
	}
	return cs, nil
}
